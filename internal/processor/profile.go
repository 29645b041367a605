package processor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Profile is a flat key/value record: the subject a document is filled for,
// or the organization issuing it.
type Profile map[string]any

// Lookup returns the value of key as text. Missing keys and nulls give "".
func (p Profile) Lookup(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// FullName is full_name, or first_name and last_name joined.
func (p Profile) FullName() string {
	if name := strings.TrimSpace(p.Lookup("full_name")); name != "" {
		return name
	}
	return strings.TrimSpace(p.Lookup("first_name") + " " + p.Lookup("last_name"))
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// formatDate rewrites machine dates (RFC 3339 or ISO calendar dates) with
// layout. Anything else is returned unchanged.
func formatDate(value, layout string) string {
	v := strings.TrimSpace(value)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t.Format(layout)
		}
	}
	return value
}
