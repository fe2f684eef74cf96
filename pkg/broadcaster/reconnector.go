package broadcaster

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is the state of the listener's reconnect cycle.
type State int32

const (
	// StateConnecting opens a listener connection and subscribes
	StateConnecting State = iota
	// StateListening delivers messages
	StateListening
	// StateFailed records a listener failure
	StateFailed
	// StateBackoff waits before reconnecting
	StateBackoff
	// StateStopped is reached only when the broadcaster is closed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateFailed:
		return "failed"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// reconnector keeps the listener running for the life of the broadcaster.
// Every failure, whether connecting or while listening, ends in a fixed
// backoff followed by a fresh connection.
type reconnector struct {
	listener *listener
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  Metrics
	state    atomic.Int32
}

func (r *reconnector) State() State {
	return State(r.state.Load())
}

func (r *reconnector) setState(s State) {
	r.state.Store(int32(s))
	r.metrics.SetListenerState(s)
}

// run drives the state machine until ctx is cancelled.
func (r *reconnector) run(ctx context.Context) {
	state := StateConnecting
	var (
		sess    *session
		failure error
	)

	for {
		if ctx.Err() != nil {
			if sess != nil {
				sess.close()
			}
			r.setState(StateStopped)
			return
		}
		r.setState(state)

		switch state {
		case StateConnecting:
			sess, failure = r.listener.connect(ctx)
			if failure != nil {
				if ctx.Err() == nil {
					r.metrics.RecordListenerFailure()
					r.logger.Error().
						Err(failure).
						Dur("retry_in", r.timeout).
						Msg("Failed to start listener")
				}
				state = StateBackoff
				continue
			}
			state = StateListening

		case StateListening:
			stop := context.AfterFunc(ctx, func() {
				_ = sess.sub.Close()
			})
			failure = r.listener.listen(ctx, sess.sub)
			stop()
			sess.close()
			sess = nil
			state = StateFailed

		case StateFailed:
			if ctx.Err() == nil {
				r.metrics.RecordListenerFailure()
				r.logger.Error().
					Err(failure).
					Dur("retry_in", r.timeout).
					Msg("Listener failed")
			}
			state = StateBackoff

		case StateBackoff:
			timer := time.NewTimer(r.timeout)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
				r.metrics.RecordReconnect()
				r.logger.Info().Msg("Reconnecting listener")
				state = StateConnecting
			}
		}
	}
}
