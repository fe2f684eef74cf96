package broadcaster

import "context"

// Notification kinds delivered by a pattern subscription.
const (
	KindPMessage   = "pmessage"
	KindPSubscribe = "psubscribe"
)

// Notification is a single message read from a pattern subscription.
type Notification struct {
	// Kind is the broker message kind, "pmessage" for published data
	Kind string

	// Pattern is the pattern that matched the channel
	Pattern string

	// Channel is the fully scoped channel name the message was published to
	Channel string

	// Payload is the encoded message
	Payload []byte
}

// Conn is a command connection to a publish/subscribe broker.
// A broadcaster holds two of them: one for publishing and one for listening.
type Conn interface {
	// Ping checks the broker is reachable.
	Ping(ctx context.Context) error

	// Publish sends payload to channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// PSubscribe subscribes to every channel matching pattern.
	// It returns once the broker has confirmed the subscription.
	PSubscribe(ctx context.Context, pattern string) (Subscription, error)

	// Close releases the connection.
	Close() error
}

// Subscription is a live pattern subscription.
type Subscription interface {
	// Receive blocks until the next notification arrives or the
	// connection fails.
	Receive(ctx context.Context) (Notification, error)

	// Close ends the subscription and unblocks any pending Receive.
	Close() error
}

// Dialer opens a broker connection for the given URL.
type Dialer func(ctx context.Context, url string) (Conn, error)
