package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const configFileEnvVar = "SOCIAL_CONFIG"

type Config interface {
	EnvConfig
	SessionConfig
	RealtimeConfig
	PresenceConfig
	OAuthConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
	GetWSBaseURL() string
	GetHTTPTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Session
	Realtime
	Presence
	OAuth
	Store
}

// New builds the configuration from environment variables, layered over the
// YAML file named by SOCIAL_CONFIG when it is set. A broken file is reported
// and ignored so the client can still start on defaults.
func New() Config {
	cfg, err := Load(os.Getenv(configFileEnvVar))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v; using environment and defaults\n", err)
		return fromSource(source{})
	}
	return cfg
}

// Load reads the optional YAML file at path. Keys in the file mirror the
// environment variable names (API_BASE_URL, WS_BASE_URL, ...); environment
// variables always win over file values.
func Load(path string) (Config, error) {
	src := source{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		values := map[string]string{}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		src.file = values
	}
	return fromSource(src), nil
}

func fromSource(src source) Config {
	return mainConfig{
		EnvVars:  EnvVars{src: src},
		Session:  Session{src: src},
		Realtime: Realtime{src: src},
		Presence: Presence{src: src},
		OAuth:    OAuth{src: src},
		Store:    Store{src: src},
	}
}
