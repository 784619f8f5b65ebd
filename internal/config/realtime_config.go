package config

import "time"

type RealtimeConfig interface {
	GetReconnectAttempts() int
	GetReconnectDelay() time.Duration
}

type Realtime struct {
	src source
}

var _ RealtimeConfig = Realtime{}

func (r Realtime) GetReconnectAttempts() int {
	return r.src.int("RECONNECT_ATTEMPTS", 3)
}

func (r Realtime) GetReconnectDelay() time.Duration {
	return r.src.duration("RECONNECT_DELAY", 3*time.Second)
}
