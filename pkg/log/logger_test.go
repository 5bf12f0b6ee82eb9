package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONComponents(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.InfoLevel, Type: JSONLogger, Output: &buf})

	Protocol.Info().Str("subject", "s-1").Msg("dispute resolved")
	Protocol.Debug().Msg("filtered")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "protocol", line["component"])
	assert.Equal(t, "s-1", line["subject"])
	assert.Equal(t, "dispute resolved", line["message"])
}

func TestInit_Console(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: ConsoleLogger, Output: &buf})

	Store.Debug().Int("writes", 3).Msg("commit")
	out := buf.String()
	assert.Contains(t, out, "DEBUG commit")
	assert.Contains(t, out, "component=store")
	assert.Contains(t, out, "writes=3")
}

func TestParseLoggerType(t *testing.T) {
	typ, err := ParseLoggerType("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONLogger, typ)

	typ, err = ParseLoggerType("")
	require.NoError(t, err)
	assert.Equal(t, ConsoleLogger, typ)

	_, err = ParseLoggerType("xml")
	assert.Error(t, err)
}
