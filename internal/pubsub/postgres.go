package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

const (
	// NotifyChannel is the PostgreSQL channel carrying all broadcaster
	// traffic. Pattern matching happens on the listening side.
	NotifyChannel = "broadcaster"

	// MaxNotifyPayload is the PostgreSQL NOTIFY payload limit.
	MaxNotifyPayload = 8000
)

// envelope wraps a message so the broadcaster channel survives NOTIFY,
// which only has one channel for all traffic.
type envelope struct {
	Channel string `json:"channel"`
	Payload []byte `json:"payload"`
}

// DialPostgres opens a broker connection backed by PostgreSQL
// LISTEN/NOTIFY. Connections are established lazily.
//
// Performance characteristics:
// - Good for moderate message rates
// - Payload size limit: 8000 bytes including the envelope
// - Every listener receives every message and filters locally
func DialPostgres(ctx context.Context, url string) (broadcaster.Conn, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", broadcaster.ErrInvalidURL, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	return &postgresConn{pool: pool}, nil
}

type postgresConn struct {
	pool *pgxpool.Pool
}

func (c *postgresConn) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *postgresConn) Publish(ctx context.Context, channel string, payload []byte) error {
	data, err := encodeEnvelope(channel, payload)
	if err != nil {
		return err
	}

	if _, err := c.pool.Exec(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (c *postgresConn) PSubscribe(ctx context.Context, pattern string) (broadcaster.Subscription, error) {
	pooled, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for LISTEN: %w", err)
	}
	// The listening connection never goes back to the pool
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("failed to execute LISTEN: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	return &postgresSubscription{
		conn:    conn,
		pattern: pattern,
		ctx:     subCtx,
		cancel:  cancel,
	}, nil
}

func (c *postgresConn) Close() error {
	c.pool.Close()
	return nil
}

type postgresSubscription struct {
	pattern string
	ctx     context.Context
	cancel  context.CancelFunc

	// mu serializes use of conn, which is not safe for concurrent use
	mu     sync.Mutex
	conn   *pgx.Conn
	closed bool
}

func (s *postgresSubscription) Receive(ctx context.Context) (broadcaster.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return broadcaster.Notification{}, ErrSubscriptionClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	for {
		notification, err := s.conn.WaitForNotification(ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return broadcaster.Notification{}, ErrSubscriptionClosed
			}
			return broadcaster.Notification{}, err
		}

		if n, ok := filterNotification(s.pattern, notification.Payload); ok {
			return n, nil
		}
	}
}

// filterNotification turns a NOTIFY payload into a notification for
// pattern. Payloads that are not envelopes, or whose channel does not
// match, are skipped: the NOTIFY channel is shared by every broadcaster on
// the database and may carry foreign messages.
func filterNotification(pattern, payload string) (broadcaster.Notification, bool) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		log.Warn().Err(err).Str("channel", NotifyChannel).Msg("Skipping undecodable notification")
		return broadcaster.Notification{}, false
	}
	if !MatchPattern(pattern, env.Channel) {
		return broadcaster.Notification{}, false
	}

	return broadcaster.Notification{
		Kind:    broadcaster.KindPMessage,
		Pattern: pattern,
		Channel: env.Channel,
		Payload: env.Payload,
	}, true
}

func (s *postgresSubscription) Close() error {
	// Interrupt a pending Receive before taking the lock
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close(context.Background())
}

func encodeEnvelope(channel string, payload []byte) (string, error) {
	data, err := json.Marshal(envelope{Channel: channel, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	if len(data) > MaxNotifyPayload {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), MaxNotifyPayload)
	}
	return string(data), nil
}

func decodeEnvelope(data string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, nil
}
