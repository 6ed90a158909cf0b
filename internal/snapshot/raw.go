// Package snapshot is the schema boundary for payloads emitted by the
// openclaw CLI. Every field is optional: accessors return an explicit
// default when a path is absent or has the wrong type, and the record
// decoders in this package are the only place that knows field names.
package snapshot

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Raw is one structured payload captured from a single CLI invocation.
// A nil *Raw is valid and behaves as an empty document.
type Raw struct {
	root gjson.Result
}

// Parse returns nil unless data is exactly one well-formed JSON document.
func Parse(data []byte) *Raw {
	if len(strings.TrimSpace(string(data))) == 0 || !gjson.ValidBytes(data) {
		return nil
	}
	return &Raw{root: gjson.ParseBytes(data)}
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) *Raw {
	r := Parse([]byte(s))
	if r == nil {
		panic("snapshot: invalid JSON literal")
	}
	return r
}

func (r *Raw) Get(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	if path == "" {
		return r.root
	}
	return r.root.Get(path)
}

func (r *Raw) Has(path string) bool {
	return r.Get(path).Exists()
}

func (r *Raw) String(path, def string) string {
	return stringOr(r.Get(path), def)
}

func (r *Raw) Int(path string) int64 {
	return intOr(r.Get(path), 0)
}

func (r *Raw) Bool(path string) bool {
	return boolOr(r.Get(path), false)
}

func (r *Raw) Time(path string) time.Time {
	return TimeOf(r.Get(path))
}

// Value returns the subtree at path as plain Go values (maps, slices,
// float64, string, bool, nil).
func (r *Raw) Value(path string) any {
	res := r.Get(path)
	if !res.Exists() {
		return nil
	}
	return res.Value()
}

// JSON returns the raw text of the document.
func (r *Raw) JSON() string {
	if r == nil {
		return ""
	}
	return r.root.Raw
}

// TimeOf accepts epoch numbers (milliseconds, or seconds when the value
// is too small to be milliseconds) and RFC3339 strings. Anything else is
// the zero time.
func TimeOf(res gjson.Result) time.Time {
	switch res.Type {
	case gjson.Number:
		return fromEpoch(res.Float())
	case gjson.String:
		s := strings.TrimSpace(res.String())
		if s == "" {
			return time.Time{}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f)
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func fromEpoch(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if v < 1e11 {
		return time.Unix(int64(v), 0)
	}
	return time.UnixMilli(int64(v))
}

func stringOr(res gjson.Result, def string) string {
	switch res.Type {
	case gjson.String:
		if s := strings.TrimSpace(res.String()); s != "" {
			return s
		}
	case gjson.Number:
		return res.Raw
	}
	return def
}

func intOr(res gjson.Result, def int64) int64 {
	switch res.Type {
	case gjson.Number:
		return res.Int()
	case gjson.String:
		if n, err := strconv.ParseInt(strings.TrimSpace(res.String()), 10, 64); err == nil {
			return n
		}
	}
	return def
}

// optInt reports whether the value was present and numeric.
func optInt(res gjson.Result) (int64, bool) {
	switch res.Type {
	case gjson.Number:
		return res.Int(), true
	case gjson.String:
		if n, err := strconv.ParseInt(strings.TrimSpace(res.String()), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func boolOr(res gjson.Result, def bool) bool {
	switch res.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		if b, err := strconv.ParseBool(res.String()); err == nil {
			return b
		}
	}
	return def
}

// firstOf returns the first path under res that exists.
func firstOf(res gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
