package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		want      zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 7, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Setup(tt.verbosity, "")
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestSetupCreatesLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "ardenthat.log")

	Setup(1, logPath)
	logger := GetLogger("test")
	logger.Info().Msg("hello")

	data, err := os.ReadFile(logPath)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestDefaultLogFile(t *testing.T) {
	assert.Equal(t, "ardenthat.log", filepath.Base(DefaultLogFile()))
	assert.Equal(t, "ardenthat", filepath.Base(filepath.Dir(DefaultLogFile())))
}
