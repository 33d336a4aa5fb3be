package storage

import (
	"encoding/json"
	"fmt"
)

// jsonArg marshals a value for a JSON column parameter. lib/pq sends
// strings, not bytea, so JSONB columns accept the result on both drivers.
func jsonArg(v interface{}) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

// jsonScan unmarshals a JSON column into dst. Empty and NULL columns
// leave dst at its zero value.
func jsonScan(data []byte, dst interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}
