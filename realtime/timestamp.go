package realtime

import (
	"bytes"
	"encoding/json"
	"time"
)

// Timestamp is a point in time decoded leniently from broker payloads.
// Anything it cannot read decodes to the zero time.
type Timestamp struct {
	time.Time
}

// Now returns the current time in UTC as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Below this an epoch number is read as seconds rather than milliseconds.
const epochSecondsLimit = 1e11

// MarshalJSON writes RFC3339 with nanoseconds, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC3339 strings, zone-less ISO strings (read as UTC),
// epoch numbers and [y,M,d,h,m,s,nanos] arrays. It never fails.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = parseTimestamp(bytes.TrimSpace(data))
	return nil
}

func parseTimestamp(data []byte) time.Time {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return time.Time{}
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return time.Time{}
		}
		return parseTimestampString(s)
	case '[':
		var parts []int64
		if err := json.Unmarshal(data, &parts); err != nil || len(parts) < 3 {
			return time.Time{}
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		return time.Date(int(parts[0]), time.Month(parts[1]), int(parts[2]),
			int(parts[3]), int(parts[4]), int(parts[5]), int(parts[6]), time.UTC)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil || n <= 0 {
			return time.Time{}
		}
		if n < epochSecondsLimit {
			return time.Unix(int64(n), 0).UTC()
		}
		return time.UnixMilli(int64(n)).UTC()
	}
}

func parseTimestampString(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	for _, layout := range zonelessLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts
		}
	}
	return time.Time{}
}
