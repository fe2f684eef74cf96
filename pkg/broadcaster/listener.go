package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// listener receives every message published in the broadcaster's
// namespace and hands it to the registered callbacks.
type listener struct {
	pattern  string
	url      string
	dialer   Dialer
	codec    Codec
	registry *registry
	logger   zerolog.Logger
	metrics  Metrics

	// set while callbacks are being invoked
	dispatching atomic.Bool
}

// session is one listener connection together with its pattern
// subscription. It is never reused after a failure.
type session struct {
	conn Conn
	sub  Subscription
}

func (s *session) close() {
	_ = s.sub.Close()
	_ = s.conn.Close()
}

// connect opens a fresh listener connection and subscribes to the
// namespace pattern.
func (l *listener) connect(ctx context.Context) (*session, error) {
	l.logger.Debug().Str("pattern", l.pattern).Msg("Start listening")

	conn, err := l.dialer(ctx, l.url)
	if err != nil {
		return nil, fmt.Errorf("failed to open listener connection: %w", err)
	}

	sub, err := conn.PSubscribe(ctx, l.pattern)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", l.pattern, err)
	}

	return &session{conn: conn, sub: sub}, nil
}

// listen reads notifications until the subscription fails.
// It always returns a non-nil error.
func (l *listener) listen(ctx context.Context, sub Subscription) error {
	for {
		n, err := sub.Receive(ctx)
		if err != nil {
			return fmt.Errorf("failed to receive notification: %w", err)
		}
		if n.Kind != KindPMessage {
			continue
		}

		message, err := l.codec.Decode(n.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode notification on %s: %w", n.Channel, err)
		}

		l.dispatch(ctx, n.Channel, message)
	}
}

// dispatch calls every callback registered for channel. A failing callback
// is logged and does not affect the others.
func (l *listener) dispatch(ctx context.Context, channel string, message any) {
	subs := l.registry.snapshot(channel)

	l.logger.Debug().
		Str("channel", channel).
		Int("subscribers", len(subs)).
		Interface("message", message).
		Msg("Broadcasting")

	if len(subs) == 0 {
		return
	}

	_, span := tracer.Start(ctx, "broadcaster.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("broadcaster.channel", channel),
			attribute.Int("broadcaster.subscribers", len(subs)),
		),
	)
	defer span.End()

	l.dispatching.Store(true)
	defer l.dispatching.Store(false)

	for _, s := range subs {
		if ctx.Err() != nil {
			return
		}
		err := invoke(s.callback, message)
		l.metrics.RecordDelivery(err)
		if err == nil {
			continue
		}

		event := l.logger.Error().
			Err(err).
			Str("channel", channel).
			Str("subscription_id", s.id).
			Interface("message", message)
		var panicErr *CallbackPanicError
		if errors.As(err, &panicErr) {
			event = event.Bytes("stack", panicErr.Stack)
		}
		event.Msg("Failed")
	}
}

// invoke calls cb, turning a panic into a *CallbackPanicError.
func invoke(cb Callback, message any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackPanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return cb.Call(message)
}
