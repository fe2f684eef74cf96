package pubsub

import (
	"context"
	"fmt"
	neturl "net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

// Dial opens a broker connection, choosing the backend from the URL scheme.
//
// Backend options:
// - "redis://", "rediss://": Redis pub/sub (go-redis)
// - "postgres://", "postgresql://": PostgreSQL LISTEN/NOTIFY
// - "local://name": in-process broker shared by everything using the same name
func Dial(ctx context.Context, url string) (broadcaster.Conn, error) {
	u, err := neturl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", broadcaster.ErrInvalidURL, err)
	}

	switch u.Scheme {
	case "redis", "rediss":
		log.Debug().Str("backend", "redis").Str("addr", u.Host).Msg("Dialing broker")
		return broadcaster.DialRedis(ctx, url)

	case "postgres", "postgresql":
		log.Debug().Str("backend", "postgres").Str("addr", u.Host).Msg("Dialing broker")
		return DialPostgres(ctx, url)

	case "local":
		log.Debug().Str("backend", "local").Str("name", u.Host).Msg("Dialing broker")
		return GetLocalBroker(u.Host).Dial(ctx, url)

	default:
		return nil, fmt.Errorf("%w: unknown broker scheme %q (valid options: redis, rediss, postgres, postgresql, local)",
			broadcaster.ErrInvalidURL, u.Scheme)
	}
}

var (
	localBrokersMu sync.Mutex
	localBrokers   = make(map[string]*LocalBroker)
)

// GetLocalBroker returns the process-wide local broker with the given
// name, creating it on first use.
func GetLocalBroker(name string) *LocalBroker {
	localBrokersMu.Lock()
	defer localBrokersMu.Unlock()

	b, ok := localBrokers[name]
	if !ok {
		b = NewLocalBroker()
		localBrokers[name] = b
	}
	return b
}
