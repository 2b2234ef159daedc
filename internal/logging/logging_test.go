package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json_format", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "warn", "json")
		log.Info("hidden")
		log.WithField("pid", 42).Warn("shown")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.EqualValues(t, 42, entry["pid"])
	})

	t.Run("unknown_level_defaults_to_info", func(t *testing.T) {
		log := NewWithWriter(&bytes.Buffer{}, "loud", "text")
		assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	})
}
