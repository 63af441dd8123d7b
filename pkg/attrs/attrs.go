// Package attrs reads values back out of slog-style argument lists so that
// one set of key/value pairs can feed both a log line and an audit event.
package attrs

import (
	"fmt"
	"log/slog"
)

// ExtractString returns the value stored under key in kv, which uses the
// slog argument convention: alternating key/value pairs, optionally mixed with
// slog.Attr entries. Strings and fmt.Stringer values are returned as text;
// other values (and missing keys) yield "".
func ExtractString(kv []any, key string) string {
	for i := 0; i < len(kv); i++ {
		switch k := kv[i].(type) {
		case slog.Attr:
			if k.Key == key {
				return textOf(k.Value.Any())
			}
		case string:
			if i+1 >= len(kv) {
				return ""
			}
			i++
			if k == key {
				return textOf(kv[i])
			}
		}
	}
	return ""
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return ""
	}
}
