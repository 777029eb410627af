// Package media turns image references from upstream records into local
// files ready for upload.
package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Reference is a set of image URLs decoded from any of the shapes upstream
// tables use: a single URL string, a list of URLs, or a list of objects
// carrying a "url" field. Entries that are not URLs are dropped, never
// invented.
type Reference struct {
	URLs []string
}

// NewReference builds a Reference from explicit URLs.
func NewReference(urls ...string) Reference {
	return ParseReference(urls)
}

// Empty reports whether the reference carries no URL.
func (r Reference) Empty() bool {
	return len(r.URLs) == 0
}

// UnmarshalJSON accepts a string, a list of strings, a list of objects with
// a "url" field, or null.
func (r *Reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		r.URLs = nil
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("media: decode image reference: %w", err)
	}
	switch v.(type) {
	case string, []any, map[string]any:
	default:
		return fmt.Errorf("media: unsupported image reference %s", string(data))
	}
	*r = ParseReference(v)
	return nil
}

// MarshalJSON encodes the reference as a list of URLs.
func (r Reference) MarshalJSON() ([]byte, error) {
	if r.URLs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.URLs)
}

// ParseReference converts a loosely typed value, as decoded from a record,
// into a Reference. Order is preserved.
func ParseReference(v any) Reference {
	var urls []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			urls = append(urls, s)
		}
	}

	switch val := v.(type) {
	case nil:
	case string:
		add(val)
	case []string:
		for _, s := range val {
			add(s)
		}
	case map[string]any:
		if s, ok := val["url"].(string); ok {
			add(s)
		}
	case []any:
		for _, item := range val {
			switch it := item.(type) {
			case string:
				add(it)
			case map[string]any:
				if s, ok := it["url"].(string); ok {
					add(s)
				}
			}
		}
	case []map[string]any:
		for _, it := range val {
			if s, ok := it["url"].(string); ok {
				add(s)
			}
		}
	}
	return Reference{URLs: urls}
}
