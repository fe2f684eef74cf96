package broadcaster

import (
	"context"
	"fmt"
	neturl "net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fluxbase-eu/broadcaster")

// Broadcaster publishes messages to, and dispatches messages from, the
// channels of one namespace on a broker.
type Broadcaster struct {
	id        string
	codec     Codec
	logger    zerolog.Logger
	metrics   Metrics
	publisher Conn
	registry  *registry

	reconnector *reconnector
	cancel      context.CancelFunc
	done        chan struct{}
	closed      atomic.Bool
	closeOnce   sync.Once
	closeErr    error
}

// New creates a broadcaster and starts its listener.
//
// The publish connection is checked before New returns, so an unreachable
// broker is reported immediately. The listener subscribes in the
// background; messages published right after New returns may not be
// delivered yet.
func New(ctx context.Context, opts ...Option) (*Broadcaster, error) {
	o := newOptions(CurrentDefaults())
	for _, opt := range opts {
		opt(&o)
	}

	id := o.id
	if id == "" {
		if o.idSet {
			return nil, ErrEmptyID
		}
		id = uuid.NewString()
	}

	logger := o.logger.With().
		Str("component", "broadcaster").
		Str("broadcaster_id", id).
		Logger()

	publisher, err := o.dialer(ctx, o.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker at %s: %w", redactURL(o.url), err)
	}
	if err := publisher.Ping(ctx); err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to connect to broker at %s: %w", redactURL(o.url), err)
	}

	reg := newRegistry()
	b := &Broadcaster{
		id:        id,
		codec:     o.codec,
		logger:    logger,
		metrics:   o.metrics,
		publisher: publisher,
		registry:  reg,
		reconnector: &reconnector{
			listener: &listener{
				pattern:  namespacePattern(id),
				url:      o.url,
				dialer:   o.dialer,
				codec:    o.codec,
				registry: reg,
				logger:   logger,
				metrics:  o.metrics,
			},
			timeout: o.reconnectionTimeout,
			logger:  logger,
			metrics: o.metrics,
		},
		done: make(chan struct{}),
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go func() {
		defer close(b.done)
		b.reconnector.run(runCtx)
		b.shutdown()
	}()

	return b, nil
}

// ID returns the broadcaster id.
func (b *Broadcaster) ID() string {
	return b.id
}

// State returns the current state of the listener.
func (b *Broadcaster) State() State {
	return b.reconnector.State()
}

// Publish encodes message and publishes it to channel. Broker errors are
// returned as is; Publish never retries.
func (b *Broadcaster) Publish(ctx context.Context, channel string, message any) error {
	if b.closed.Load() {
		return ErrClosed
	}

	target := scoped(b.id, channel)
	ctx, span := tracer.Start(ctx, "broadcaster.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("broadcaster.id", b.id),
			attribute.String("broadcaster.channel", target),
		),
	)
	defer span.End()

	payload, err := b.codec.Encode(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.metrics.RecordPublish(err)
		return err
	}

	b.logger.Debug().Str("channel", target).Interface("message", message).Msg("Published")

	err = b.publisher.Publish(ctx, target, payload)
	b.metrics.RecordPublish(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Subscribe registers cb for messages published to channel and returns the
// subscription id used to cancel it.
func (b *Broadcaster) Subscribe(channel string, cb Callback) (string, error) {
	if cb == nil {
		return "", ErrNilCallback
	}
	if fn, ok := cb.(CallbackFunc); ok && fn == nil {
		return "", ErrNilCallback
	}
	if b.closed.Load() {
		return "", ErrClosed
	}

	id := uuid.NewString()
	target := scoped(b.id, channel)
	b.registry.add(target, id, cb)

	b.logger.Debug().Str("channel", target).Str("subscription_id", id).Msg("Subscribed")
	b.recordSubscriptions()
	return id, nil
}

// SubscribeFunc is Subscribe for a plain function.
func (b *Broadcaster) SubscribeFunc(channel string, fn func(message any) error) (string, error) {
	if fn == nil {
		return "", ErrNilCallback
	}
	return b.Subscribe(channel, CallbackFunc(fn))
}

// Unsubscribe cancels the subscription with the given id and returns its
// callback. Unknown ids are ignored and reported with false.
func (b *Broadcaster) Unsubscribe(subscriptionID string) (Callback, bool) {
	channel, cb, ok := b.registry.remove(subscriptionID)
	if !ok {
		return nil, false
	}

	b.logger.Debug().Str("channel", channel).Str("subscription_id", subscriptionID).Msg("Unsubscribed")
	b.recordSubscriptions()
	return cb, true
}

// UnsubscribeAll cancels every subscription.
func (b *Broadcaster) UnsubscribeAll() {
	b.registry.clear()
	b.logger.Debug().Msg("Unsubscribed all")
	b.recordSubscriptions()
}

// Close stops the listener, drops all subscriptions and closes the publish
// connection. Calling Close more than once is safe.
//
// Close waits for the listener to stop, except while a callback is
// running: a callback may call Close, which then returns at once and the
// shutdown completes after the callback returns. No callback is invoked
// after Close.
func (b *Broadcaster) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.cancel()
	})
	if b.reconnector.listener.dispatching.Load() {
		return nil
	}
	<-b.done
	return b.closeErr
}

// shutdown runs on the listener goroutine once the listener has stopped.
func (b *Broadcaster) shutdown() {
	b.registry.clear()
	b.recordSubscriptions()
	b.closeErr = b.publisher.Close()
	b.logger.Debug().Msg("Closed")
}

func (b *Broadcaster) recordSubscriptions() {
	b.metrics.SetSubscriptions(b.registry.count())
}

// redactURL hides the password of a broker URL so it can be logged or
// returned in errors.
func redactURL(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
