package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-social-client/realtime"
	"github.com/stretchr/testify/require"
)

func TestTimestampDecoding(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 15, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "rfc3339", raw: `"2024-05-01T10:30:15Z"`, want: want},
		{name: "rfc3339 offset", raw: `"2024-05-01T12:30:15+02:00"`, want: want},
		{name: "zoneless", raw: `"2024-05-01T10:30:15"`, want: want},
		{name: "zoneless fraction", raw: `"2024-05-01T10:30:15.250"`, want: want.Add(250 * time.Millisecond)},
		{name: "zoneless space", raw: `"2024-05-01 10:30:15"`, want: want},
		{name: "epoch millis", raw: "1714559415000", want: want},
		{name: "epoch seconds", raw: "1714559415", want: want},
		{name: "array", raw: `[2024,5,1,10,30,15]`, want: want},
		{name: "array nanos", raw: `[2024,5,1,10,30,15,500]`, want: want.Add(500)},
		{name: "null", raw: "null"},
		{name: "empty string", raw: `""`},
		{name: "garbage string", raw: `"yesterday"`},
		{name: "short array", raw: `[2024]`},
		{name: "object", raw: `{"at":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts realtime.Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ts))
			require.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
		})
	}
}

func TestTimestampInsideStructNeverFailsDecode(t *testing.T) {
	var msg struct {
		Content string             `json:"content"`
		At      realtime.Timestamp `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"content":"hi","at":true}`), &msg))
	require.Equal(t, "hi", msg.Content)
	require.True(t, msg.At.IsZero())
}

func TestTimestampEncoding(t *testing.T) {
	data, err := json.Marshal(realtime.Timestamp{Time: time.Date(2024, 5, 1, 10, 30, 15, 0, time.UTC)})
	require.NoError(t, err)
	require.JSONEq(t, `"2024-05-01T10:30:15Z"`, string(data))

	data, err = json.Marshal(realtime.Timestamp{})
	require.NoError(t, err)
	require.Equal(t, "null", string(data))
}
