package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-foodscore/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logging.Setup("PROD", "warn", &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("route", "/scan").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["message"])
	require.Equal(t, "/scan", entry["route"])
}

func TestSetupInvalidLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logging.Setup("DEV", "chatty", &bytes.Buffer{})
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
