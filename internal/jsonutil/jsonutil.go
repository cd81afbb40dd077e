// Package jsonutil decodes run input and parameter values from JSON and
// normalizes decoded values so that JSON, TOML and YAML sources produce the
// same Go types: int64 for whole numbers, float64 for the rest,
// map[string]any for objects and []any for arrays.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxInputBytes caps the size of a decoded document.
const maxInputBytes = 10 * 1024 * 1024 // 10 MB

// ErrNotObject is returned when a document decodes to something other than a
// JSON object.
var ErrNotObject = errors.New("jsonutil: document is not a JSON object")

// sanitize strips a leading UTF-8 BOM and enforces the size cap.
func sanitize(data []byte) ([]byte, error) {
	if len(data) > maxInputBytes {
		return nil, fmt.Errorf("jsonutil: input exceeds maximum size of %d bytes", maxInputBytes)
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}

// DecodeObject decodes data as a single JSON object and normalizes its
// values. Trailing content after the object is an error.
func DecodeObject(data []byte) (map[string]any, error) {
	data, err := sanitize(data)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("jsonutil: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("jsonutil: unexpected data after JSON object")
	}

	obj, ok := Normalize(v).(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// DecodeObjectFile reads path and decodes it with DecodeObject.
func DecodeObjectFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jsonutil: reading %s: %w", path, err)
	}
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obj, nil
}

// ParseValue interprets s as a JSON value (number, bool, null, string, array
// or object) and falls back to the raw string when it is not valid JSON, so
// `--set name=alice` and `--set count=3` both do what a user expects.
func ParseValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return s
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return s
	}
	return Normalize(v)
}
