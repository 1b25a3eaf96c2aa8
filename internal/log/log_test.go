package log

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"Debug", slog.LevelDebug},
		{"trace", LevelTrace},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseLevel("verbose")
	assert.Error(t, err)
}

func TestSetLogLevel(t *testing.T) {
	previous := currentLevel.Load().(slog.Level)
	t.Cleanup(func() {
		currentLevel.Store(previous)
		updateHandler()
	})

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, slog.LevelDebug, currentLevel.Load().(slog.Level))

	assert.Error(t, SetLogLevel("loud"))
	assert.Equal(t, slog.LevelDebug, currentLevel.Load().(slog.Level), "invalid level keeps the current one")
}
