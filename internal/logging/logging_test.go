package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-social-client/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupWriter(&buf, "warn", "PROD")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"component":"test"`)
	require.Contains(t, out, `"message":"shown"`)
}

func TestSetupWriterUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupWriter(&buf, "chatty", "PROD")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
