package testutil

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Run("records messages in order", func(t *testing.T) {
		r := NewRecorder()
		require.NoError(t, r.Call("a"))
		require.NoError(t, r.Call(2))

		assert.Equal(t, []any{"a", 2}, r.Messages())
		assert.Equal(t, 2, r.Count())
	})

	t.Run("OnCall error skips recording", func(t *testing.T) {
		r := NewRecorder()
		r.OnCall = func(message any) error {
			if message == "bad" {
				return errors.New("rejected")
			}
			return nil
		}

		require.NoError(t, r.Call("good"))
		require.Error(t, r.Call("bad"))
		assert.Equal(t, []any{"good"}, r.Messages())
	})

	t.Run("reset", func(t *testing.T) {
		r := NewRecorder()
		_ = r.Call("a")
		r.Reset()
		assert.Zero(t, r.Count())
	})

	t.Run("concurrent calls", func(t *testing.T) {
		r := NewRecorder()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = r.Call(i)
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 50, r.Count())
	})
}
