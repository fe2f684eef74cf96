package broadcaster

import "sync"

// subscriber is a single registered callback, as handed out by snapshot.
type subscriber struct {
	id       string
	callback Callback
}

// registry maps scoped channel names to their subscriptions.
// Channels without subscriptions are removed, never kept as empty buckets.
type registry struct {
	mu       sync.Mutex
	channels map[string]map[string]Callback
}

func newRegistry() *registry {
	return &registry{
		channels: make(map[string]map[string]Callback),
	}
}

func (r *registry) add(channel, id string, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.channels[channel]
	if !ok {
		subs = make(map[string]Callback)
		r.channels[channel] = subs
	}
	subs[id] = cb
}

// remove deletes the subscription with the given id from whichever channel
// holds it and returns the channel and callback.
func (r *registry) remove(id string) (string, Callback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel, subs := range r.channels {
		cb, ok := subs[id]
		if !ok {
			continue
		}
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.channels, channel)
		}
		return channel, cb, true
	}
	return "", nil, false
}

func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.channels = make(map[string]map[string]Callback)
}

// snapshot copies the subscribers of channel so they can be called
// without holding the lock.
func (r *registry) snapshot(channel string) []subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.channels[channel]
	if len(subs) == 0 {
		return nil
	}
	out := make([]subscriber, 0, len(subs))
	for id, cb := range subs {
		out = append(out, subscriber{id: id, callback: cb})
	}
	return out
}

// count returns the number of channels and subscriptions.
func (r *registry) count() (channels, subscriptions int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, subs := range r.channels {
		subscriptions += len(subs)
	}
	return len(r.channels), subscriptions
}
