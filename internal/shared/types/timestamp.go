package types

import (
	"fmt"
	"strings"
	"time"
)

// The backend emits timestamps in a few shapes: full RFC 3339, RFC 3339
// without a zone, and a legacy variant that uses a literal space instead of
// the 'T' date/time separator. Zone-less values are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a backend timestamp, normalizing the space-separated
// variant before trying the known layouts.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	// "2024-01-02 15:04:05" -> "2024-01-02T15:04:05"
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTime renders a timestamp the way the backend expects: RFC 3339 UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Time is a time.Time that accepts every backend timestamp shape on the
// wire and always renders RFC 3339 UTC.
type Time struct {
	time.Time
}

// Now returns the current instant as a wire Time
func Now() Time {
	return Time{Time: time.Now().UTC()}
}

// At wraps a time.Time
func At(t time.Time) Time {
	return Time{Time: t}
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + FormatTime(t.Time) + `"`), nil
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
