package broadcaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec{}

	data, err := codec.Encode(map[string]any{"n": 1, "s": "x"})
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(1), "s": "x"}, decoded)

	t.Run("encode error", func(t *testing.T) {
		_, err := codec.Encode(make(chan int))
		assert.Error(t, err)
	})

	t.Run("decode error", func(t *testing.T) {
		_, err := codec.Decode([]byte("{not json"))
		assert.ErrorContains(t, err, "failed to decode message")
	})
}

func TestYAMLCodec(t *testing.T) {
	codec := YAMLCodec{}

	for _, message := range []any{"message 1", 5, 0, true, nil, []any{1, "two"}} {
		data, err := codec.Encode(message)
		require.NoError(t, err)

		decoded, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, message, decoded)
	}

	t.Run("decode error", func(t *testing.T) {
		_, err := codec.Decode([]byte("key: [unclosed"))
		assert.Error(t, err)
	})
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name     string
		expected Codec
		wantErr  bool
	}{
		{"", JSONCodec{}, false},
		{"json", JSONCodec{}, false},
		{"yaml", YAMLCodec{}, false},
		{"yml", YAMLCodec{}, false},
		{"gob", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := CodecByName(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown codec")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, codec)
		})
	}
}
