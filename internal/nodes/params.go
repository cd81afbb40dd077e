package nodes

import (
	"fmt"
	"time"
)

// Params holds the free-form parameters of a node or router declared in a
// graph file. Values arrive from TOML or YAML decoding, so numbers may be
// int, int64 or float64.
type Params map[string]any

// String returns the string parameter key. A missing key yields defaultVal;
// a value of another type is an error.
func (p Params) String(key, defaultVal string) (string, error) {
	v, ok := p[key]
	if !ok {
		return defaultVal, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q: expected string, got %T", key, v)
	}
	return s, nil
}

// RequireString is String for a parameter that must be present and
// non-empty.
func (p Params) RequireString(key string) (string, error) {
	s, err := p.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("param %q is required", key)
	}
	return s, nil
}

// Int returns an integer parameter. Whole float64 values are accepted since
// JSON and YAML decoders may produce them.
func (p Params) Int(key string, defaultVal int64) (int64, error) {
	v, ok := p[key]
	if !ok {
		return defaultVal, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("param %q: %v is not a whole number", key, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("param %q: expected integer, got %T", key, v)
	}
}

// Float returns a numeric parameter as float64.
func (p Params) Float(key string, defaultVal float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return defaultVal, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("param %q: expected number, got %T", key, v)
	}
}

// Duration parses a Go duration string such as "250ms".
func (p Params) Duration(key string, defaultVal time.Duration) (time.Duration, error) {
	s, err := p.String(key, "")
	if err != nil {
		return 0, err
	}
	if s == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("param %q: %w", key, err)
	}
	return d, nil
}

// Map returns a table parameter.
func (p Params) Map(key string) (map[string]any, error) {
	v, ok := p[key]
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("param %q: expected table, got %T", key, v)
	}
	return m, nil
}

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}
