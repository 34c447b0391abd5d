package config

import (
	"fmt"
	"time"
)

// Section data arrives from JSON (float64 numbers), YAML (int numbers) or
// code (native types). These helpers accept all three.

func stringValue(data map[string]interface{}, key string) (string, bool) {
	v, ok := data[key].(string)
	return v, ok
}

func boolValue(data map[string]interface{}, key string) (bool, bool) {
	v, ok := data[key].(bool)
	return v, ok
}

func intValue(data map[string]interface{}, key string) (int, bool, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, false, fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
		return int(v), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number, got %T", key, raw)
	}
}

// durationValue accepts "30s" style strings or a number of seconds.
func durationValue(data map[string]interface{}, key string) (time.Duration, bool, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, false, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, true, nil
	case time.Duration:
		return v, true, nil
	case int:
		return time.Duration(v) * time.Second, true, nil
	case float64:
		return time.Duration(v * float64(time.Second)), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a duration, got %T", key, raw)
	}
}

func stringSliceValue(data map[string]interface{}, key string) ([]string, bool, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), true, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false, fmt.Errorf("%s must contain only strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%s must be a list, got %T", key, raw)
	}
}
