package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:   "json format to stdout",
			config: &Config{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name:   "console format to stderr",
			config: &Config{Level: "debug", Format: "console", Output: "stderr"},
		},
		{
			name:   "empty format defaults to json",
			config: &Config{Level: "info", Output: "stdout"},
		},
		{
			name:   "file output",
			config: &Config{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")},
		},
		{
			name:    "unwritable file output",
			config:  &Config{Level: "info", Format: "json", Output: "/nonexistent-dir/app.log"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, l)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, l)
			require.NotNil(t, l.Logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestWith(t *testing.T) {
	l := NewDefault()
	child := l.With("service", "test")

	require.NotNil(t, child)
	assert.NotSame(t, l, child)
}
