// Package pubsub provides broker backends for the broadcaster: an
// in-process broker for single-process use and tests, and a PostgreSQL
// LISTEN/NOTIFY broker for deployments without Redis.
package pubsub

import "errors"

var (
	// ErrBrokerDown is returned by LocalBroker while it is stopped.
	ErrBrokerDown = errors.New("broker connection error")

	// ErrConnClosed is returned when a closed connection is used.
	ErrConnClosed = errors.New("connection is closed")

	// ErrSubscriptionClosed is returned by Receive after Close.
	ErrSubscriptionClosed = errors.New("subscription is closed")

	// ErrSlowConsumer ends a subscription whose buffer overflowed.
	ErrSlowConsumer = errors.New("subscription buffer full, disconnected")

	// ErrPayloadTooLarge is returned when a payload exceeds the NOTIFY limit.
	ErrPayloadTooLarge = errors.New("payload too large for PostgreSQL NOTIFY")
)
