package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeValue decodes one JSON scalar into a Value. Arrays and objects are
// rejected; arguments are positional scalars.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return convertToValue(raw)
}

// DecodeArgs decodes a JSON array of scalars. An empty or null input
// yields no arguments.
func DecodeArgs(data []byte) ([]Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("args must be a JSON array: %w", err)
	}
	out := make([]Value, len(raw))
	for i, r := range raw {
		v, err := DecodeValue(r)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// convertToValue converts a decoded JSON scalar to a Value.
func convertToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return numberFromJSON(val)
	case []any:
		return nil, fmt.Errorf("arrays are not argument values")
	case map[string]any:
		return nil, fmt.Errorf("objects are not argument values")
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// numberFromJSON keeps integer literals exact and derives integrality for
// everything else from the float64 value, so "3.0" and "1e3" are integers.
func numberFromJSON(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return NewInt(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", n, err)
	}
	return NewFloat(f), nil
}
