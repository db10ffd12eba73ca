package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent_AgregaCampo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "debug", Service: "pos", Out: &buf})

	log := l.Component("resolver")
	log.Info().Str("barcode", "7790895001234").Msg("resuelto")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "resolver", line["component"])
	assert.Equal(t, "pos", line["service"])
	assert.Equal(t, "7790895001234", line["barcode"])
	assert.Equal(t, "resuelto", line["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel(" ERROR "))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("cualquiera"))
}
