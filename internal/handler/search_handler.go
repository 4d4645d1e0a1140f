package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// SearchHandler serves global search.
type SearchHandler struct {
	search service.SearchService
	logger zerolog.Logger
}

// NewSearchHandler constructs a search handler.
func NewSearchHandler(search service.SearchService, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: logger.With().Str("component", "search_handler").Logger(),
	}
}

// Register binds search routes.
func (h *SearchHandler) Register(router fiber.Router) {
	router.Get("/", h.query)
}

func (h *SearchHandler) query(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var query dto.SearchQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.search.Search(requestContext(c), userID, query)
	if err != nil {
		return respondError(c, h.logger, err, "search")
	}
	return utils.SendSuccess(c, "search results", result)
}
