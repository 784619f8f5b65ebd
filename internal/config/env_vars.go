package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	logLevelVar   = "LOG_LEVEL"
	apiBaseURLVar = "API_BASE_URL"
	wsBaseURLVar  = "WS_BASE_URL"
	httpTimeout   = "HTTP_TIMEOUT"
)

// source resolves a setting from the environment first, then the optional
// config file, then the supplied default.
type source struct {
	file map[string]string
}

func (s source) get(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	if value, ok := s.file[name]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) duration(name string, defaultValue time.Duration) time.Duration {
	raw := s.get(name, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func (s source) int(name string, defaultValue int) int {
	raw := s.get(name, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

type EnvVars struct {
	src source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.src.get(appNameVar, "Social Client")
}

func (e EnvVars) GetEnv() string {
	return e.src.get(envVar, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.src.get(logLevelVar, "info"))
}

// GetAPIBaseURL returns the REST API root (e.g., "https://api.example.com").
// Trailing slashes are trimmed so paths can be appended directly.
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(e.src.get(apiBaseURLVar, "http://localhost:8080"), "/")
}

// GetWSBaseURL returns the realtime upgrade endpoint.
func (e EnvVars) GetWSBaseURL() string {
	return e.src.get(wsBaseURLVar, "ws://localhost:8080/ws")
}

func (e EnvVars) GetHTTPTimeout() time.Duration {
	return e.src.duration(httpTimeout, 30*time.Second)
}

// GetEnv returns the environment variable value or the default when unset.
func GetEnv(envVar, defaultValue string) string {
	return source{}.get(envVar, defaultValue)
}
