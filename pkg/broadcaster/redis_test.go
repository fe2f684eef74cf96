package broadcaster

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialCounter counts the network dials a redis client makes.
type dialCounter struct {
	dials atomic.Int64
}

func (h *dialCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		h.dials.Add(1)
		return next(ctx, network, addr)
	}
}

func (h *dialCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h *dialCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// closedAddr returns a local address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestDialRedis_InvalidURL(t *testing.T) {
	_, err := DialRedis(context.Background(), "http://localhost:6379")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestDialRedis_PublishIsNotRetried(t *testing.T) {
	conn, err := DialRedis(context.Background(), "redis://"+closedAddr(t))
	require.NoError(t, err)
	defer conn.Close()

	hook := &dialCounter{}
	conn.(*redisConn).client.AddHook(hook)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err = conn.Publish(ctx, "channel_1", []byte(`"hello"`))
	require.Error(t, err)
	assert.Equal(t, int64(1), hook.dials.Load())
	assert.Less(t, time.Since(start), time.Second)

	require.Error(t, conn.Ping(ctx))
	assert.Equal(t, int64(2), hook.dials.Load())
}

func TestRedisLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = previous }()

	redisLogger{}.Printf(context.Background(), "connection pool: %s", "exhausted")

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"component":"go-redis"`)
	assert.Contains(t, buf.String(), `"message":"connection pool: exhausted"`)
}
