package middleware

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/huddle-api/internal/utils"
)

// identityClaims is the token shape issued by the identity provider. The
// user id comes from sub, or from user_id for older issuers.
type identityClaims struct {
	jwt.RegisteredClaims
	UserID            json.Number `json:"user_id,omitempty"`
	Name              string      `json:"name,omitempty"`
	PreferredUsername string      `json:"preferred_username,omitempty"`
	Role              string      `json:"role,omitempty"`
}

func (c identityClaims) userID() (uint, bool) {
	for _, raw := range []string{c.Subject, c.UserID.String()} {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err == nil && id > 0 {
			return uint(id), true
		}
	}
	return 0, false
}

func (c identityClaims) displayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return strings.TrimSpace(c.PreferredUsername)
}

// JWTProtected validates HMAC-signed bearer tokens and exposes user_id,
// user_role and user_name locals. Websocket upgrades and event streams may
// pass the token as ?access_token= because browsers cannot set headers there.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(30*time.Second),
	)
	key := []byte(secret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return key, nil }

	return func(c *fiber.Ctx) error {
		raw, ok := tokenFromRequest(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "bearer token required")
		}

		var claims identityClaims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if id, ok := claims.userID(); ok {
			c.Locals("user_id", id)
		}
		if role := strings.ToLower(strings.TrimSpace(claims.Role)); role != "" {
			c.Locals("user_role", role)
		}
		if name := claims.displayName(); name != "" {
			c.Locals("user_name", name)
		}

		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) (string, bool) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}

	if websocket.IsWebSocketUpgrade(c) || strings.Contains(c.Get(fiber.HeaderAccept), "text/event-stream") {
		token := strings.TrimSpace(c.Query("access_token"))
		return token, token != ""
	}
	return "", false
}
