package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netviz/internal/config"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.WithField("session", "abc").Warn("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, "warning", entry["level"])
}

func TestNewDefaults(t *testing.T) {
	log, err := NewWithOutput(config.LoggingConfig{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := NewWithOutput(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}
