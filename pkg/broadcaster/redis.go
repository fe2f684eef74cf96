package broadcaster

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var redisLoggerOnce sync.Once

// DialRedis is the default Dialer. url should be in the format
// redis://[user:password@]host:port[/db] (or rediss:// for TLS).
// No network I/O happens until the connection is used.
//
// Commands are sent once: client retries are disabled so that a failed
// Publish or Ping is reported to the caller immediately.
func DialRedis(ctx context.Context, url string) (Conn, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	opts.MaxRetries = -1
	opts.DialerRetries = 1

	redisLoggerOnce.Do(func() {
		redis.SetLogger(redisLogger{})
	})

	return &redisConn{client: redis.NewClient(opts)}, nil
}

// redisLogger routes go-redis internal messages to the global zerolog
// logger. go-redis only supports a process-wide logger.
type redisLogger struct{}

func (redisLogger) Printf(ctx context.Context, format string, v ...interface{}) {
	log.Warn().Str("component", "go-redis").Msgf(format, v...)
}

type redisConn struct {
	client *redis.Client
}

func (c *redisConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisConn) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.client.Publish(ctx, channel, payload).Err()
}

func (c *redisConn) PSubscribe(ctx context.Context, pattern string) (Subscription, error) {
	pubsub := c.client.PSubscribe(ctx, pattern)

	// Wait for the subscription to be confirmed
	msg, err := pubsub.Receive(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	if _, ok := msg.(*redis.Subscription); !ok {
		_ = pubsub.Close()
		return nil, fmt.Errorf("unexpected reply to PSUBSCRIBE: %T", msg)
	}

	return &redisSubscription{pubsub: pubsub}, nil
}

func (c *redisConn) Close() error {
	return c.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
}

func (s *redisSubscription) Receive(ctx context.Context) (Notification, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return Notification{}, err
	}

	kind := "message"
	if msg.Pattern != "" {
		kind = KindPMessage
	}
	return Notification{
		Kind:    kind,
		Pattern: msg.Pattern,
		Channel: msg.Channel,
		Payload: []byte(msg.Payload),
	}, nil
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
