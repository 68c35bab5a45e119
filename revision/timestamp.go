package revision

import (
	"fmt"
	"time"
)

const timestampLayout = "20060102150405"

// Timestamp is a UTC instant with second precision. Its text form is the
// 14-digit YYYYMMDDhhmmss string.
type Timestamp struct {
	t time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Truncate(time.Second)}
}

func ParseTimestamp(s string) (Timestamp, error) {
	if len(s) != len(timestampLayout) {
		return Timestamp{}, newError(KindInvalidTimestamp, fmt.Sprintf("got %d characters, want 14", len(s)))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Timestamp{}, newError(KindInvalidTimestamp, fmt.Sprintf("non-digit %q at offset %d", s[i], i))
		}
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return Timestamp{}, wrapError(KindInvalidTimestamp, "invalid timestamp", err)
	}
	return Timestamp{t: t}, nil
}

func (ts Timestamp) Time() time.Time { return ts.t }

func (ts Timestamp) String() string { return ts.t.Format(timestampLayout) }

func (ts Timestamp) MarshalText() ([]byte, error) { return []byte(ts.String()), nil }

func (ts *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := ParseTimestamp(string(text))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
