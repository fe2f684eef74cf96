package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/fluxbase-eu/broadcaster/cli/output"
	"github.com/fluxbase-eu/broadcaster/internal/pubsub"
	"github.com/fluxbase-eu/broadcaster/internal/testutil"
	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{`{"order_id": 42}`, map[string]any{"order_id": float64(42)}},
		{`[1, 2]`, []any{float64(1), float64(2)}},
		{`"quoted"`, "quoted"},
		{`12`, float64(12)},
		{`true`, true},
		{`hello world`, "hello world"},
		{`{broken`, "{broken"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseMessage(tt.input))
		})
	}
}

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, newLimiter(0).Limit())
	assert.Equal(t, rate.Inf, newLimiter(-1).Limit())
	assert.Equal(t, rate.Limit(10), newLimiter(10).Limit())
}

func TestMessagePrinter(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := output.NewFormatter(output.FormatTable, false, false)
		f.Writer = buf

		p := &messagePrinter{formatter: f}
		require.NoError(t, p.print("orders", map[string]any{"id": 1}, at))
		assert.Equal(t, "orders: {\"id\":1}\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := output.NewFormatter(output.FormatJSON, false, false)
		f.Writer = buf

		p := &messagePrinter{formatter: f}
		require.NoError(t, p.callback("orders")("hello"))
		assert.Contains(t, buf.String(), `"channel": "orders"`)
		assert.Contains(t, buf.String(), `"message": "hello"`)
	})
}

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version", "-o", "json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		outputFmt = "table"
	})

	require.NoError(t, rootCmd.Execute())
	assert.JSONEq(t, `{"version":"dev","commit":"unknown","build_date":"unknown"}`, buf.String())
}

func TestPublishCommand(t *testing.T) {
	const url = "local://cli-publish-test"

	recorder := testutil.NewRecorder()
	listener, err := broadcaster.New(context.Background(),
		broadcaster.WithID("cli"),
		broadcaster.WithURL(url),
		broadcaster.WithDialer(pubsub.Dial),
		broadcaster.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	require.Eventually(t, func() bool {
		return listener.State() == broadcaster.StateListening
	}, time.Second, time.Millisecond)
	_, err = listener.Subscribe("greeting", recorder)
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"--url", url, "--id", "cli", "-q", "publish", "greeting", `{"n": 1}`, "--count", "2"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		quiet = false
		pubCount = 1
	})
	require.NoError(t, rootCmd.Execute())

	require.Eventually(t, func() bool { return recorder.Count() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []any{
		map[string]any{"n": float64(1)},
		map[string]any{"n": float64(1)},
	}, recorder.Messages())
}

func TestPublishCommand_BrokerDown(t *testing.T) {
	const url = "local://cli-down-test"
	pubsub.GetLocalBroker("cli-down-test").Stop()

	rootCmd.SetArgs([]string{"--url", url, "-q", "publish", "greeting", "hi"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		quiet = false
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, pubsub.ErrBrokerDown)
}
