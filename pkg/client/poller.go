// Package client keeps a local timeline converged with the server by paging
// once and then polling for messages newer than the cursor.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/feed"
	"github.com/noah-isme/huddle-api/internal/models"
)

const (
	defaultInterval = 3 * time.Second
	defaultTimeout  = 10 * time.Second
	defaultPageSize = 50
)

// Config configures a Poller.
type Config struct {
	BaseURL  string
	Token    string
	Target   models.Target
	Interval time.Duration
	Timeout  time.Duration
	PageSize int
	Logger   zerolog.Logger
}

// StatusError is returned when the API answers with a non-success envelope.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("huddle api responded %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Poller drives one feed.Timeline against the messages API.
type Poller struct {
	cfg      Config
	timeline *feed.Timeline
	logger   zerolog.Logger
}

// NewPoller validates cfg and returns a poller with an empty timeline.
func NewPoller(cfg Config) (*Poller, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if !cfg.Target.Valid() {
		return nil, errors.New("target must name exactly one channel or conversation")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	return &Poller{
		cfg:      cfg,
		timeline: feed.NewTimeline(),
		logger:   cfg.Logger.With().Str("component", "feed_poller").Str("target", cfg.Target.Key()).Logger(),
	}, nil
}

// Timeline exposes the converged view.
func (p *Poller) Timeline() *feed.Timeline {
	return p.timeline
}

// LoadPage fetches the newest page and merges it into the timeline.
func (p *Poller) LoadPage(ctx context.Context) error {
	query := p.targetQuery()
	query.Set("limit", strconv.Itoa(p.cfg.PageSize))

	var page []dto.MessageResponse
	if err := p.get(ctx, "/api/v1/messages", query, &page); err != nil {
		return err
	}
	p.timeline.Load(page)
	return nil
}

// LoadOlder fetches the page before the oldest loaded message. It reports
// false once the beginning of the timeline has been reached.
func (p *Poller) LoadOlder(ctx context.Context) (bool, error) {
	messages := p.timeline.Messages()
	if len(messages) == 0 {
		return false, p.LoadPage(ctx)
	}

	oldest := messages[0].ID
	for _, message := range messages {
		if message.ID < oldest {
			oldest = message.ID
		}
	}

	query := p.targetQuery()
	query.Set("limit", strconv.Itoa(p.cfg.PageSize))
	query.Set("before", strconv.FormatUint(uint64(oldest), 10))

	var page []dto.MessageResponse
	if err := p.get(ctx, "/api/v1/messages", query, &page); err != nil {
		return false, err
	}
	p.timeline.Prepend(page)
	return len(page) > 0, nil
}

// PollOnce asks for messages after the cursor and returns the ones that were
// new to the timeline.
func (p *Poller) PollOnce(ctx context.Context) ([]dto.MessageResponse, error) {
	query := p.targetQuery()
	query.Set("after", strconv.FormatUint(uint64(p.timeline.Cursor()), 10))

	var batch []dto.MessageResponse
	if err := p.get(ctx, "/api/v1/messages/poll", query, &batch); err != nil {
		return nil, err
	}

	known := make(map[uint]struct{}, p.timeline.Len())
	for _, message := range p.timeline.Messages() {
		known[message.ID] = struct{}{}
	}
	p.timeline.Apply(batch)

	fresh := make([]dto.MessageResponse, 0, len(batch))
	for _, message := range batch {
		if _, ok := known[message.ID]; ok {
			continue
		}
		known[message.ID] = struct{}{}
		fresh = append(fresh, message)
	}
	return fresh, nil
}

// Run loads the first page if needed and then polls until ctx is cancelled.
// Failed polls are logged and retried on the next tick. onNew may be nil.
func (p *Poller) Run(ctx context.Context, onNew func([]dto.MessageResponse)) error {
	if p.timeline.Len() == 0 {
		if err := p.LoadPage(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("initial page failed; falling back to polling")
		}
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fresh, err := p.PollOnce(ctx)
			if err != nil {
				p.logger.Warn().Err(err).Uint("cursor", p.timeline.Cursor()).Msg("poll failed")
				continue
			}
			if len(fresh) > 0 && onNew != nil {
				onNew(fresh)
			}
		}
	}
}

func (p *Poller) targetQuery() url.Values {
	query := url.Values{}
	if p.cfg.Target.ChannelID > 0 {
		query.Set("channel_id", strconv.FormatUint(uint64(p.cfg.Target.ChannelID), 10))
	} else {
		query.Set("conversation_id", strconv.FormatUint(uint64(p.cfg.Target.ConversationID), 10))
	}
	return query
}

func (p *Poller) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := p.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Get(p.cfg.BaseURL + path + "?" + query.Encode())
	agent.Timeout(timeout)
	if p.cfg.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+p.cfg.Token)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request %s: %w", path, errors.Join(errs...))
	}

	var payload envelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return &StatusError{Status: status, Message: "malformed response body"}
	}
	if status != fiber.StatusOK || !payload.Success {
		return &StatusError{Status: status, Message: payload.Message}
	}
	if err := json.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
