package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const relaySeenCapacity = 1024

// relay carries JSON events between API nodes. Redis pub/sub and NATS are
// both optional; when both are configured an event travels over each and the
// receiving node keeps only the first copy.
type relay struct {
	redis   *redis.Client
	channel string
	nats    *nats.Conn
	subject string
	nodeID  string
	logger  zerolog.Logger
	seen    *recentIDs
}

type relayEnvelope struct {
	ID     string          `json:"id"`
	Node   string          `json:"node"`
	SentAt time.Time       `json:"sent_at"`
	Data   json.RawMessage `json:"data"`
}

// relayHandler receives the payload of a remote event along with the name of
// the transport that delivered it.
type relayHandler func(transport string, data []byte)

// newRelay derives the redis channel "<base>:<topic>" and the NATS subject
// "<base>.<topic>". An empty base disables cross-node delivery.
func newRelay(base, topic string, redisClient *redis.Client, natsConn *nats.Conn, logger zerolog.Logger) *relay {
	r := &relay{
		nodeID: uuid.NewString(),
		logger: logger.With().Str("relay", topic).Logger(),
		seen:   newRecentIDs(relaySeenCapacity),
	}
	if base == "" {
		return r
	}
	if redisClient != nil {
		r.redis = redisClient
		r.channel = base + ":" + topic
	}
	if natsConn != nil {
		r.nats = natsConn
		r.subject = strings.ReplaceAll(base, ":", ".") + "." + topic
	}
	return r
}

func (r *relay) enabled() bool {
	return r.redis != nil || r.nats != nil
}

// send publishes v to every configured transport. The first transport error
// is returned after all transports have been tried.
func (r *relay) send(ctx context.Context, v interface{}) error {
	if !r.enabled() {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(relayEnvelope{
		ID:     uuid.NewString(),
		Node:   r.nodeID,
		SentAt: time.Now().UTC(),
		Data:   data,
	})
	if err != nil {
		return err
	}

	var errs []error
	if r.redis != nil {
		errs = append(errs, r.redis.Publish(ctx, r.channel, payload).Err())
	}
	if r.nats != nil {
		errs = append(errs, r.nats.Publish(r.subject, payload))
	}
	return errors.Join(errs...)
}

// start subscribes to every configured transport until ctx is cancelled.
func (r *relay) start(ctx context.Context, handle relayHandler) {
	if r.redis != nil {
		pubsub := r.redis.Subscribe(ctx, r.channel)
		go r.consumeRedis(ctx, pubsub, handle)
	}
	if r.nats != nil {
		// a plain subscription: every node needs every event
		sub, err := r.nats.Subscribe(r.subject, func(msg *nats.Msg) {
			r.receive("nats", msg.Data, handle)
		})
		if err != nil {
			r.logger.Error().Err(err).Str("subject", r.subject).Msg("nats subscription failed")
			return
		}
		go func() {
			<-ctx.Done()
			if err := sub.Drain(); err != nil {
				r.logger.Warn().Err(err).Msg("nats drain failed")
			}
		}()
	}
}

func (r *relay) consumeRedis(ctx context.Context, pubsub *redis.PubSub, handle relayHandler) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			r.logger.Error().Err(err).Str("channel", r.channel).Msg("redis subscription ended")
			return
		}
		r.receive("redis", []byte(msg.Payload), handle)
	}
}

func (r *relay) receive(transport string, payload []byte, handle relayHandler) {
	var envelope relayEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		r.logger.Warn().Err(err).Str("transport", transport).Msg("discarding malformed relay event")
		return
	}
	if envelope.Node == r.nodeID || !r.seen.add(envelope.ID) {
		return
	}
	handle(transport, envelope.Data)
}

// recentIDs remembers the last n ids it was given.
type recentIDs struct {
	mu    sync.Mutex
	index map[string]struct{}
	ring  []string
	next  int
}

func newRecentIDs(n int) *recentIDs {
	return &recentIDs{index: make(map[string]struct{}, n), ring: make([]string, n)}
}

// add reports whether id was new.
func (r *recentIDs) add(id string) bool {
	if id == "" {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.index, old)
	}
	r.ring[r.next] = id
	r.index[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
	return true
}
