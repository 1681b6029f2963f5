package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/choreboard/choreboard/internal/config"
	"github.com/choreboard/choreboard/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{name: "debug level", logLevel: "debug"},
		{name: "info level", logLevel: "info"},
		{name: "warn level", logLevel: "warn"},
		{name: "error level", logLevel: "error"},
		{name: "mixed case", logLevel: "INFO"},
		{name: "invalid level falls back to info", logLevel: "chatty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{Port: 8080, LogLevel: tt.logLevel})
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestFromContextOrDefault(t *testing.T) {
	def := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("returns context logger when present", func(t *testing.T) {
		ctxLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := logger.WithContext(context.Background(), ctxLogger)

		got := logger.FromContextOrDefault(ctx, def)
		assert.Same(t, ctxLogger, got)
	})

	t.Run("returns default when context is empty", func(t *testing.T) {
		got := logger.FromContextOrDefault(context.Background(), def)
		assert.Same(t, def, got)
	})

	t.Run("never returns nil", func(t *testing.T) {
		got := logger.FromContextOrDefault(context.Background(), nil)
		assert.NotNil(t, got)
	})
}

func TestFromContext(t *testing.T) {
	_, ok := logger.FromContext(context.Background())
	assert.False(t, ok)
}
