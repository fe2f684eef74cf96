package broadcaster

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultURL is the broker used when no URL is configured.
	DefaultURL = "redis://localhost:6379"

	// DefaultReconnectionTimeout is the pause between listener restarts.
	DefaultReconnectionTimeout = time.Second
)

// Defaults holds the process-wide settings used by New when an option is
// not given explicitly.
type Defaults struct {
	// Dialer opens broker connections (DialRedis unless replaced)
	Dialer Dialer

	// URL is the broker address handed to Dialer
	URL string

	// Logger receives broadcaster logs. Nil means the global zerolog logger
	// at the time New is called.
	Logger *zerolog.Logger

	// ReconnectionTimeout is the backoff between listener restarts
	ReconnectionTimeout time.Duration

	// Codec encodes published messages
	Codec Codec
}

var (
	defaultsMu sync.RWMutex
	defaults   = Defaults{
		Dialer:              DialRedis,
		URL:                 DefaultURL,
		ReconnectionTimeout: DefaultReconnectionTimeout,
		Codec:               JSONCodec{},
	}
)

// Configure changes the process-wide defaults. Broadcasters that already
// exist keep the settings they were created with.
func Configure(fn func(*Defaults)) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	fn(&defaults)
}

// CurrentDefaults returns a copy of the process-wide defaults.
func CurrentDefaults() Defaults {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaults
}

type options struct {
	id                  string
	idSet               bool
	dialer              Dialer
	url                 string
	logger              zerolog.Logger
	reconnectionTimeout time.Duration
	codec               Codec
	metrics             Metrics
}

func newOptions(d Defaults) options {
	o := options{
		dialer:              d.Dialer,
		url:                 d.URL,
		logger:              log.Logger,
		reconnectionTimeout: d.ReconnectionTimeout,
		codec:               d.Codec,
		metrics:             nopMetrics{},
	}
	if d.Logger != nil {
		o.logger = *d.Logger
	}
	return o
}

// Option configures a single Broadcaster.
type Option func(*options)

// WithID sets the broadcaster id. Broadcasters with the same id share
// channels, even across processes.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
		o.idSet = true
	}
}

// WithDialer replaces the broker connection factory.
func WithDialer(dialer Dialer) Option {
	return func(o *options) {
		if dialer != nil {
			o.dialer = dialer
		}
	}
}

// WithURL sets the broker URL passed to the dialer.
func WithURL(url string) Option {
	return func(o *options) {
		o.url = url
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReconnectionTimeout sets how long the listener waits before
// reconnecting after a failure.
func WithReconnectionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.reconnectionTimeout = d
		}
	}
}

// WithCodec sets the message codec.
func WithCodec(codec Codec) Option {
	return func(o *options) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
