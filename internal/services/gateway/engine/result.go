package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// encodeResult turns a tool return value into JSON. Strings and byte slices
// are encoded as JSON strings.
func encodeResult(result any) (json.RawMessage, error) {
	switch v := result.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("tool returned invalid JSON")
		}
		return v, nil
	case []byte:
		result = string(v)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return data, nil
}

// resultText renders a tool return value as human-readable text.
func resultText(result any) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	data, err := encodeResult(result)
	if err != nil {
		return "", err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return string(data), nil
	}
	return indented.String(), nil
}

// isJSONObject reports whether data encodes a JSON object.
func isJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
