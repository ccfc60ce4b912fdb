package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWithWriterLevels(t *testing.T) {
	tests := []struct {
		name       string
		verbose    bool
		quiet      bool
		wantsDebug bool
		wantsInfo  bool
	}{
		{"default is info", false, false, false, true},
		{"verbose enables debug", true, false, true, true},
		{"quiet drops info", false, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := InitLoggerWithWriter(tt.verbose, tt.quiet, &buf)

			logger.Debug().Msg("debug line")
			logger.Info().Msg("info line")
			logger.Warn().Msg("warn line")

			out := buf.String()
			assert.Equal(t, tt.wantsDebug, bytes.Contains(buf.Bytes(), []byte("debug line")), out)
			assert.Equal(t, tt.wantsInfo, bytes.Contains(buf.Bytes(), []byte("info line")), out)
			assert.Contains(t, out, "warn line")
		})
	}
}

func TestInitLoggerWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)

	logger.Info().Str("branch", "main").Msg("merged")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "merged", entry["message"])
	assert.Equal(t, "main", entry["branch"])
	assert.NotEmpty(t, entry["time"])
}
