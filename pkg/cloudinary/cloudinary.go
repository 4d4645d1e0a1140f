package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether every credential is present.
func (c Config) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Storage stores message attachments in Cloudinary.
type Storage struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary-backed attachment store.
func New(cfg Config, logger zerolog.Logger) (*Storage, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Storage{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary_storage").Logger(),
	}, nil
}

// Upload sends the attachment to Cloudinary and returns its secure URL.
func (s *Storage) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	publicID := attachmentPublicID(name, uuid.NewString())

	// "auto" lets Cloudinary accept documents and archives as raw assets.
	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       publicID,
		ResourceType:   "auto",
		UseFilename:    boolPtr(false),
		UniqueFilename: boolPtr(false),
	})
	if err != nil {
		return "", fmt.Errorf("upload attachment %q: %w", name, err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("upload attachment %q: %s", name, result.Error.Message)
	}

	s.logger.Debug().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("attachment stored")
	return result.SecureURL, nil
}

func attachmentPublicID(name, suffix string) string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})

	base = strings.Join(words, "-")
	if base == "" {
		base = "attachment"
	}
	if len(base) > 48 {
		base = strings.TrimRight(base[:48], "-")
	}

	return base + "-" + suffix[:8]
}

func boolPtr(v bool) *bool {
	return &v
}
