package config

import "time"

type PresenceConfig interface {
	GetPingInterval() time.Duration
	GetPresencePollInterval() time.Duration
}

type Presence struct {
	src source
}

var _ PresenceConfig = Presence{}

func (p Presence) GetPingInterval() time.Duration {
	return p.src.duration("PING_INTERVAL", 10*time.Second)
}

func (p Presence) GetPresencePollInterval() time.Duration {
	return p.src.duration("PRESENCE_POLL_INTERVAL", 30*time.Second)
}
