package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormatter(format Format, noHeaders, quiet bool) (*Formatter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	f := NewFormatter(format, noHeaders, quiet)
	f.Writer = buf
	return f, buf
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatter_Print(t *testing.T) {
	data := map[string]any{"channel": "orders", "count": 2}

	t.Run("json", func(t *testing.T) {
		f, buf := newTestFormatter(FormatJSON, false, false)
		require.NoError(t, f.Print(data))
		assert.JSONEq(t, `{"channel":"orders","count":2}`, buf.String())
		assert.Contains(t, buf.String(), "\n  ")
	})

	t.Run("yaml", func(t *testing.T) {
		f, buf := newTestFormatter(FormatYAML, false, false)
		require.NoError(t, f.Print(data))
		assert.Equal(t, "channel: orders\ncount: 2\n", buf.String())
	})

	t.Run("table falls back to compact json", func(t *testing.T) {
		f, buf := newTestFormatter(FormatTable, false, false)
		require.NoError(t, f.Print(data))
		assert.Equal(t, `{"channel":"orders","count":2}`+"\n", buf.String())
	})

	t.Run("quiet", func(t *testing.T) {
		f, buf := newTestFormatter(FormatJSON, false, true)
		require.NoError(t, f.Print(data))
		assert.Empty(t, buf.String())
	})
}

func TestFormatter_PrintTable(t *testing.T) {
	data := TableData{
		Headers: []string{"CHANNEL", "PUBLISHED"},
		Rows:    [][]string{{"orders", "3"}},
	}

	t.Run("table", func(t *testing.T) {
		f, buf := newTestFormatter(FormatTable, false, false)
		f.PrintTable(data)
		out := buf.String()
		assert.Contains(t, out, "CHANNEL")
		assert.Contains(t, out, "orders")
		assert.Contains(t, out, "3")
	})

	t.Run("no headers", func(t *testing.T) {
		f, buf := newTestFormatter(FormatTable, true, false)
		f.PrintTable(data)
		assert.NotContains(t, buf.String(), "CHANNEL")
		assert.Contains(t, buf.String(), "orders")
	})

	t.Run("json uses lowercase header keys", func(t *testing.T) {
		f, buf := newTestFormatter(FormatJSON, false, false)
		f.PrintTable(data)
		assert.JSONEq(t, `[{"channel":"orders","published":"3"}]`, buf.String())
	})
}

func TestFormatter_PrintKeyValue(t *testing.T) {
	f, buf := newTestFormatter(FormatTable, false, false)
	f.PrintKeyValue("orders", `{"id":1}`)
	assert.Equal(t, "orders: {\"id\":1}\n", buf.String())

	f, buf = newTestFormatter(FormatYAML, false, false)
	f.PrintKeyValue("orders", "hello")
	assert.Equal(t, "orders: hello\n", strings.TrimLeft(buf.String(), "\n"))
}
