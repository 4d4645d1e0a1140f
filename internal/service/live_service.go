package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/observability"
)

const (
	liveSendBufferSize = 32
	livePingInterval   = 30 * time.Second
)

// LiveConn is the subset of a websocket connection used by the live feed.
type LiveConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// LiveConnectionOptions wraps metadata extracted during the HTTP upgrade.
type LiveConnectionOptions struct {
	UserID    uint
	Target    models.Target
	RequestID string
}

// LiveService pushes timeline events to websocket subscribers on every node.
type LiveService interface {
	ServeConnection(conn LiveConn, opts LiveConnectionOptions)
	Publish(ctx context.Context, target models.Target, event dto.LiveEvent)
	Revoke(ctx context.Context, userID uint, target models.Target)
	Start(ctx context.Context)
}

type liveService struct {
	relay  *relay
	logger zerolog.Logger
	tracer trace.Tracer
	hub    *liveHub
}

// liveHub tracks connected clients per timeline.
type liveHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*liveClient]struct{}
	log   zerolog.Logger
}

type liveClient struct {
	conn      LiveConn
	send      chan dto.LiveEvent
	room      string
	userID    uint
	requestID string
	service   *liveService
	closed    chan struct{}
	once      sync.Once
}

// NewLiveService creates the live feed hub. Redis and NATS are optional
// cross-node transports.
func NewLiveService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) LiveService {
	log := logger.With().Str("component", "live_service").Logger()
	return &liveService{
		relay:  newRelay(channelBase, "live", redisClient, natsConn, log),
		logger: log,
		tracer: otel.Tracer("github.com/noah-isme/huddle-api/internal/service/live"),
		hub: &liveHub{
			rooms: make(map[string]map[*liveClient]struct{}),
			log:   logger.With().Str("component", "live_hub").Logger(),
		},
	}
}

func (s *liveService) Start(ctx context.Context) {
	s.relay.start(ctx, s.deliverRemote)
}

// ServeConnection blocks until the client disconnects. Clients only receive;
// anything they send is discarded.
func (s *liveService) ServeConnection(conn LiveConn, opts LiveConnectionOptions) {
	client := &liveClient{
		conn:      conn,
		send:      make(chan dto.LiveEvent, liveSendBufferSize),
		room:      opts.Target.Key(),
		userID:    opts.UserID,
		requestID: opts.RequestID,
		service:   s,
		closed:    make(chan struct{}),
	}

	s.hub.register(client)
	observability.LiveConnections().Inc()
	defer observability.LiveConnections().Dec()

	go client.writer()
	client.reader()
}

// Publish delivers the event to local subscribers and forwards it to the
// other nodes.
func (s *liveService) Publish(ctx context.Context, target models.Target, event dto.LiveEvent) {
	ctx, span := s.tracer.Start(ctx, "live.publish", trace.WithAttributes(
		attribute.String("target", target.Key()),
		attribute.String("event", event.Type),
	))
	defer span.End()

	event.Target = target.Key()

	s.hub.broadcast(event.Target, event)
	observability.LiveBroadcasts().WithLabelValues("local").Inc()

	if err := s.relay.send(ctx, event); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Str("target", event.Target).Msg("failed to forward live event")
	}
}

// Revoke disconnects every socket userID holds on target, here and on the
// other nodes.
func (s *liveService) Revoke(ctx context.Context, userID uint, target models.Target) {
	room := target.Key()
	closed := s.hub.revoke(room, userID)
	s.logger.Debug().Str("target", room).Uint("user_id", userID).Int("closed", closed).Msg("live access revoked")

	event := dto.LiveEvent{Type: dto.LiveAccessRevoked, Target: room, UserID: userID}
	if err := s.relay.send(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("target", room).Msg("failed to forward live revocation")
	}
}

func (s *liveService) deliverRemote(transport string, data []byte) {
	var event dto.LiveEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid live event")
		return
	}
	if event.Target == "" {
		return
	}

	if event.Type == dto.LiveAccessRevoked {
		s.hub.revoke(event.Target, event.UserID)
		return
	}

	observability.LiveBroadcasts().WithLabelValues(transport).Inc()
	s.hub.broadcast(event.Target, event)
}

func (h *liveHub) register(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rooms[client.room]; !exists {
		h.rooms[client.room] = make(map[*liveClient]struct{})
	}
	h.rooms[client.room][client] = struct{}{}
	h.log.Debug().
		Str("target", client.room).
		Uint("user_id", client.userID).
		Str("request_id", client.requestID).
		Msg("live client connected")
}

func (h *liveHub) unregister(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[client.room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, client.room)
		}
	}
	h.log.Debug().Str("target", client.room).Uint("user_id", client.userID).Msg("live client disconnected")
}

func (h *liveHub) broadcast(room string, event dto.LiveEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("target", room).Uint("user_id", client.userID).Msg("dropping live event for slow client")
		}
	}
}

func (h *liveHub) revoke(room string, userID uint) int {
	h.mu.RLock()
	var doomed []*liveClient
	for client := range h.rooms[room] {
		if client.userID == userID {
			doomed = append(doomed, client)
		}
	}
	h.mu.RUnlock()

	// close unregisters, which takes the write lock.
	for _, client := range doomed {
		client.close()
	}
	return len(doomed)
}

func (h *liveHub) connected(room string, userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		if client.userID == userID {
			return true
		}
	}
	return false
}

func (h *liveHub) size(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (c *liveClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("live read loop ended")
			return
		}
	}
}

func (c *liveClient) writer() {
	defer c.close()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("live write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("live ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *liveClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
