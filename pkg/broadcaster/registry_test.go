package broadcaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopCallback() Callback {
	return CallbackFunc(func(any) error { return nil })
}

func TestRegistry_AddAndSnapshot(t *testing.T) {
	r := newRegistry()
	assert.Nil(t, r.snapshot("ns:a"))

	r.add("ns:a", "1", nopCallback())
	r.add("ns:a", "2", nopCallback())
	r.add("ns:b", "3", nopCallback())

	subs := r.snapshot("ns:a")
	require.Len(t, subs, 2)
	ids := []string{subs[0].id, subs[1].id}
	assert.ElementsMatch(t, []string{"1", "2"}, ids)

	channels, subscriptions := r.count()
	assert.Equal(t, 2, channels)
	assert.Equal(t, 3, subscriptions)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := newRegistry()
	r.add("ns:a", "1", nopCallback())

	subs := r.snapshot("ns:a")
	r.add("ns:a", "2", nopCallback())
	r.remove("1")

	require.Len(t, subs, 1)
	assert.Equal(t, "1", subs[0].id)
}

func TestRegistry_Remove(t *testing.T) {
	r := newRegistry()
	cb := nopCallback()
	r.add("ns:a", "1", cb)
	r.add("ns:a", "2", nopCallback())

	t.Run("removes one subscription", func(t *testing.T) {
		channel, removed, ok := r.remove("1")
		require.True(t, ok)
		assert.Equal(t, "ns:a", channel)
		assert.NotNil(t, removed)
		assert.Len(t, r.snapshot("ns:a"), 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, removed, ok := r.remove("1")
		assert.False(t, ok)
		assert.Nil(t, removed)
	})

	t.Run("prunes empty channel", func(t *testing.T) {
		_, _, ok := r.remove("2")
		require.True(t, ok)

		r.mu.Lock()
		defer r.mu.Unlock()
		assert.Empty(t, r.channels)
	})
}

func TestRegistry_Clear(t *testing.T) {
	r := newRegistry()
	r.add("ns:a", "1", nopCallback())
	r.add("ns:b", "2", nopCallback())

	r.clear()

	channels, subscriptions := r.count()
	assert.Zero(t, channels)
	assert.Zero(t, subscriptions)
	assert.Nil(t, r.snapshot("ns:a"))
}
