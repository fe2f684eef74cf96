// Package broadcaster provides in-process publish/subscribe on top of an
// external broker such as Redis.
//
// Every broadcaster has an id that defines its namespace: a channel named
// "orders" is published on the broker as "{id}:orders". Broadcasters that
// share an id see each other's messages, even in different processes.
// Broadcasters with different ids never do.
//
//	b, err := broadcaster.New(ctx, broadcaster.WithURL("redis://localhost:6379"))
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//
//	id, _ := b.SubscribeFunc("orders", func(message any) error {
//		fmt.Println("received", message)
//		return nil
//	})
//	_ = b.Publish(ctx, "orders", map[string]any{"id": 42})
//	b.Unsubscribe(id)
//
// Each broadcaster keeps two broker connections. Publish uses one of them
// directly and returns broker errors to the caller. The other belongs to a
// background listener subscribed to the pattern "{id}:*". When the
// listener's connection fails it is discarded, and after the reconnection
// timeout a new one is opened. Subscriptions are local and survive
// reconnects.
//
// Callbacks run on the listener goroutine. A callback that returns an
// error or panics is logged and does not affect other callbacks. A
// callback may call Close.
//
// DialRedis sends every command once, without client retries. go-redis
// log output goes to the global zerolog logger.
package broadcaster
