package datastore

import (
	"strconv"
	"strings"
)

// Fields is the loosely-typed field map of one datastore record. Values may be
// strings, numbers, booleans, arrays (multi-select, linked records, lookups)
// or attachment objects. The accessors below turn them into canonical Go values
// so nothing past this package has to inspect dynamic types.
type Fields map[string]any

// String returns the first non-blank value among keys. Arrays yield their
// first non-blank element.
func (f Fields) String(keys ...string) string {
	for _, key := range keys {
		for _, v := range flatten(f[key]) {
			if v != "" {
				return v
			}
		}
	}
	return ""
}

// Strings returns every non-blank value of key as a slice. A single string
// becomes a one-element slice. Missing fields yield nil.
func (f Fields) Strings(keys ...string) []string {
	for _, key := range keys {
		values := flatten(f[key])
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				out = append(out, v)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Bool interprets checkbox, numeric and textual truth values.
func (f Fields) Bool(keys ...string) bool {
	for _, key := range keys {
		switch v := f[key].(type) {
		case bool:
			if v {
				return true
			}
		case float64:
			if v != 0 {
				return true
			}
		case nil:
		default:
			switch strings.ToLower(f.String(key)) {
			case "true", "yes", "y", "1", "checked", "reviewed":
				return true
			}
		}
	}
	return false
}

// AttachmentURL returns the url of the first attachment in key.
func (f Fields) AttachmentURL(key string) string {
	items, ok := f[key].([]any)
	if !ok {
		return f.String(key)
	}
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			if url, ok := obj["url"].(string); ok && url != "" {
				return url
			}
		}
	}
	return ""
}

func flatten(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, flatten(item)...)
		}
		return out
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, strings.TrimSpace(item))
		}
		return out
	default:
		return []string{scalar(v)}
	}
}

func scalar(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any:
		// Linked-record and collaborator objects.
		for _, key := range []string{"name", "id", "url"} {
			if s, ok := v[key].(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	default:
		return ""
	}
}
