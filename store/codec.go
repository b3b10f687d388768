package store

import (
	"encoding/json"
	"strings"
)

// DecodeStringList decodes a JSON array column.
// Empty, "null", "[]" and malformed text all decode to nil.
func DecodeStringList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "[]" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	out := list[:0]
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// EncodeStringList encodes a list for a JSON array column.
func EncodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// EncodeVector encodes an embedding for drivers without a native vector type.
func EncodeVector(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	data, _ := json.Marshal(v)
	return string(data)
}

// DecodeVector decodes EncodeVector output. Malformed text decodes to nil.
func DecodeVector(raw string) []float32 {
	if raw == "" {
		return nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}
