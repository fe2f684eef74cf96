package pubsub

import (
	"context"
	"sync"

	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

// DefaultLocalBufferSize is the number of undelivered notifications a
// local subscription holds before it is disconnected.
const DefaultLocalBufferSize = 1024

// LocalBroker is an in-process broker with Redis pub/sub semantics.
// Messages only reach connections dialed from the same LocalBroker.
//
// Stop simulates an outage: live subscriptions are disconnected and every
// command fails with ErrBrokerDown until Start is called.
type LocalBroker struct {
	mu         sync.RWMutex
	running    bool
	subs       map[*localSubscription]struct{}
	bufferSize int
}

// NewLocalBroker creates a running local broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		running:    true,
		subs:       make(map[*localSubscription]struct{}),
		bufferSize: DefaultLocalBufferSize,
	}
}

// Dial opens a connection to the broker. The url is ignored.
func (b *LocalBroker) Dial(ctx context.Context, url string) (broadcaster.Conn, error) {
	if !b.Running() {
		return nil, ErrBrokerDown
	}
	return &localConn{broker: b}, nil
}

// Dialer returns Dial as a broadcaster.Dialer.
func (b *LocalBroker) Dialer() broadcaster.Dialer {
	return b.Dial
}

// Running reports whether the broker accepts commands.
func (b *LocalBroker) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Stop disconnects all subscriptions and rejects commands until Start.
func (b *LocalBroker) Stop() {
	b.mu.Lock()
	b.running = false
	subs := b.subs
	b.subs = make(map[*localSubscription]struct{})
	b.mu.Unlock()

	// Kill outside the lock
	for sub := range subs {
		sub.kill(ErrBrokerDown)
	}
}

// Start makes a stopped broker accept commands again.
func (b *LocalBroker) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = true
}

// Subscriptions returns the number of live pattern subscriptions.
func (b *LocalBroker) Subscriptions() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *LocalBroker) publish(channel string, payload []byte) error {
	b.mu.RLock()
	if !b.running {
		b.mu.RUnlock()
		return ErrBrokerDown
	}
	// Copy the matching subscriptions to avoid holding the lock during sends
	var targets []*localSubscription
	for sub := range b.subs {
		if MatchPattern(sub.pattern, channel) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		data := make([]byte, len(payload))
		copy(data, payload)
		sub.deliver(broadcaster.Notification{
			Kind:    broadcaster.KindPMessage,
			Pattern: sub.pattern,
			Channel: channel,
			Payload: data,
		})
	}
	return nil
}

func (b *LocalBroker) psubscribe(pattern string) (*localSubscription, error) {
	sub := &localSubscription{
		broker:  b,
		pattern: pattern,
		ch:      make(chan broadcaster.Notification, b.bufferSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return nil, ErrBrokerDown
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

func (b *LocalBroker) unsubscribe(sub *localSubscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// localConn is a connection to a LocalBroker.
type localConn struct {
	broker *LocalBroker

	mu     sync.Mutex
	closed bool
	subs   []*localSubscription
}

func (c *localConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *localConn) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrConnClosed
	}
	if !c.broker.Running() {
		return ErrBrokerDown
	}
	return nil
}

func (c *localConn) Publish(ctx context.Context, channel string, payload []byte) error {
	if c.isClosed() {
		return ErrConnClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.broker.publish(channel, payload)
}

func (c *localConn) PSubscribe(ctx context.Context, pattern string) (broadcaster.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnClosed
	}

	sub, err := c.broker.psubscribe(pattern)
	if err != nil {
		return nil, err
	}
	c.subs = append(c.subs, sub)
	return sub, nil
}

func (c *localConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

// localSubscription is a pattern subscription on a LocalBroker.
type localSubscription struct {
	broker  *LocalBroker
	pattern string
	ch      chan broadcaster.Notification

	done chan struct{}
	once sync.Once
	err  error
}

// deliver queues n without blocking. A full buffer disconnects the
// subscription, as Redis does with clients that fall too far behind.
func (s *localSubscription) deliver(n broadcaster.Notification) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.ch <- n:
	default:
		s.broker.unsubscribe(s)
		s.kill(ErrSlowConsumer)
	}
}

func (s *localSubscription) kill(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *localSubscription) Receive(ctx context.Context) (broadcaster.Notification, error) {
	select {
	case <-s.done:
		return broadcaster.Notification{}, s.err
	default:
	}

	select {
	case n := <-s.ch:
		return n, nil
	case <-s.done:
		return broadcaster.Notification{}, s.err
	case <-ctx.Done():
		return broadcaster.Notification{}, ctx.Err()
	}
}

func (s *localSubscription) Close() error {
	s.broker.unsubscribe(s)
	s.kill(ErrSubscriptionClosed)
	return nil
}
