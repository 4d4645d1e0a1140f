package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/observability"
	"github.com/noah-isme/huddle-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = fmt.Errorf("%w: file exceeds maximum allowed size", ErrValidation)
	// ErrUploadTypeNotAllowed indicates the detected MIME type is not permitted.
	ErrUploadTypeNotAllowed = fmt.Errorf("%w: file type not allowed", ErrValidation)
	// ErrUploadScanFailed indicates the archive could not be inspected safely.
	ErrUploadScanFailed = fmt.Errorf("%w: file scanning failed", ErrValidation)
	// ErrUploadsDisabled is returned when no storage backend is configured.
	ErrUploadsDisabled = fmt.Errorf("%w: file uploads are not configured", ErrUpstream)
)

// FileStorage abstracts the object store that holds attachments.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates attachments and hands them to the object store.
type UploadService interface {
	Upload(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.UploadResponse, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service. A nil storage rejects every
// upload with ErrUploadsDisabled.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/huddle-api/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store", trace.WithAttributes(
		attribute.Int("upload.user_id", int(userID)),
		attribute.Int64("upload.max_bytes", s.maxSize),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	reject := func(reason string, err error) (dto.UploadResponse, error) {
		observability.UploadRejected().WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return dto.UploadResponse{}, err
	}

	if s.storage == nil {
		return reject("disabled", ErrUploadsDisabled)
	}
	if file == nil {
		return reject("missing", validationError("file", "is required"))
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)
	if file.Size > s.maxSize {
		return reject("size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return reject("size", ErrUploadTooLarge)
	}
	if buf.Len() == 0 {
		return reject("empty", validationError("file", "must not be empty"))
	}

	detected := mimetype.Detect(buf.Bytes())
	mimeType := baseMediaType(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", mimeType))
	if !isAllowedAttachment(mimeType) {
		return reject("type", ErrUploadTypeNotAllowed)
	}

	if isZipContainer(detected) {
		if err := s.scanArchive(buf.Bytes()); err != nil {
			return reject("scan", err)
		}
	}

	checksum := sha256.Sum256(buf.Bytes())
	storedName := sanitizeFileName(file.Filename, detected.Extension())

	url, err := s.storage.Upload(ctx, storedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return reject("storage", upstreamError("object storage", err))
	}

	record := models.UploadRecord{
		UserID:    userID,
		FileName:  storedName,
		URL:       url,
		MimeType:  mimeType,
		SizeBytes: int64(buf.Len()),
		Checksum:  hex.EncodeToString(checksum[:]),
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.UploadResponse{}, err
	}

	observability.UploadRequests().WithLabelValues(attachmentFamily(mimeType)).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Debug().Uint("user_id", userID).Str("mime_type", mimeType).Int64("size_bytes", record.SizeBytes).Msg("attachment stored")

	return dto.UploadResponse{
		URL:       url,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
	}, nil
}

// scanArchive rejects zip bombs: the declared uncompressed size may not exceed
// twenty times the upload limit.
func (s *uploadService) scanArchive(payload []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return ErrUploadScanFailed
		}
		return fmt.Errorf("%w: %v", ErrUploadScanFailed, err)
	}

	var total uint64
	for _, entry := range reader.File {
		total += entry.UncompressedSize64
		if total > uint64(s.maxSize*20) {
			return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func isAllowedAttachment(mimeType string) bool {
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	switch mimeType {
	case "application/pdf", "application/zip", "text/plain", "text/csv":
		return true
	case "application/msword", "application/vnd.ms-excel", "application/vnd.ms-powerpoint":
		return true
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return true
	default:
		return false
	}
}

// attachmentFamily keeps the metric label set small.
func attachmentFamily(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "text/"):
		return "text"
	case mimeType == "application/pdf":
		return "pdf"
	case mimeType == "application/zip":
		return "archive"
	default:
		return "document"
	}
}

func isZipContainer(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func baseMediaType(value string) string {
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = detectedExt
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
