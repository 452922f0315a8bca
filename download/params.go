package download

import "fmt"

// Params is the free-form parameter bag attached to a download request.
// Required and optional keys are backend-specific; the registry performs no
// validation, each backend validates its own required parameters eagerly and
// fails fast before any network I/O.
type Params map[string]interface{}

// String returns the string value for key and whether it was present and
// non-empty.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringOr returns the string value for key, or def when absent.
func (p Params) StringOr(key, def string) string {
	if s, ok := p.String(key); ok {
		return s
	}
	return def
}

// Require returns the string value for key or a configuration error naming
// the backend and the missing parameter.
func (p Params) Require(source, key string) (string, error) {
	s, ok := p.String(key)
	if !ok {
		return "", configErrorf("%s: required parameter %q is missing", source, key)
	}
	return s, nil
}

// Bool returns the boolean value for key, or def when absent or not a bool.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// StringSlice returns the value for key as a list of strings. It accepts
// []string, []interface{} of strings, and a bare string (one-element list).
func (p Params) StringSlice(key string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case string:
		return []string{t}, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, configErrorf("parameter %q must contain only strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, configErrorf("parameter %q must be a list of strings, got %T", key, v)
	}
}

// StringMap returns the value for key as a string-to-string map. It accepts
// map[string]string and map[string]interface{} of strings.
func (p Params) StringMap(key string) (map[string]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]string:
		return t, nil
	case map[string]interface{}:
		out := make(map[string]string, len(t))
		for k, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, configErrorf("parameter %q must map strings to strings, got %T for %q", key, item, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, configErrorf("parameter %q must be a string map, got %s", key, fmt.Sprintf("%T", v))
	}
}
