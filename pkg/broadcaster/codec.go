package broadcaster

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec converts messages to and from the bytes sent through the broker.
type Codec interface {
	Encode(message any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec encodes messages as JSON.
// Decoded numbers are float64 and objects are map[string]any.
type JSONCodec struct{}

func (JSONCodec) Encode(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (any, error) {
	var message any
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return message, nil
}

// YAMLCodec encodes messages as YAML.
// Unlike JSONCodec, integers decode as int.
type YAMLCodec struct{}

func (YAMLCodec) Encode(message any) ([]byte, error) {
	data, err := yaml.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

func (YAMLCodec) Decode(data []byte) (any, error) {
	var message any
	if err := yaml.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return message, nil
}

// CodecByName returns the codec registered under name ("json" or "yaml").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %s (valid options: json, yaml)", name)
	}
}
