package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newTo(&buf, "production", "mailer-api")

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Info().Str("mode", "bulk").Msg("sent")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "mailer-api", line["service"])
	assert.Equal(t, "bulk", line["mode"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "time")
}

func TestNew_DevelopmentIsConsoleAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newTo(&buf, " Dev ", "")

	log.Debug().Msg("visible")
	out := buf.String()
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "DBG")
	assert.False(t, json.Valid(buf.Bytes()))
}
