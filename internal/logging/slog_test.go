package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/atomenv/types"
)

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *SlogLogger)
		level string
		msg   string
	}{
		{"debug", func(l *SlogLogger) { l.Debug("views rebuilt", "count", 4) }, "level=DEBUG", "views rebuilt"},
		{"info", func(l *SlogLogger) { l.Info("gather complete", "count", 4) }, "level=INFO", "gather complete"},
		{"warn", func(l *SlogLogger) { l.Warn("short sample", "count", 4) }, "level=WARN", "short sample"},
		{"error", func(l *SlogLogger) { l.Error("barrier aborted", "count", 4) }, "level=ERROR", "barrier aborted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewText(buf, slog.LevelDebug)

			tt.log(logger)

			out := buf.String()
			require.Contains(t, out, tt.level)
			require.Contains(t, out, tt.msg)
			require.Contains(t, out, "count=4")
		})
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewText(buf, slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	require.Empty(t, buf.String())

	logger.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewText(buf, slog.LevelInfo).With("rank", 1)

	logger.Info("partition computed")

	require.Contains(t, buf.String(), "rank=1")
}

func TestSlogLogger_FatalExits(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewText(buf, slog.LevelInfo)
	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal("unrecoverable", "key", "atoms/loc_0")

	require.Equal(t, 1, code)
	require.Contains(t, buf.String(), "unrecoverable")
}

func TestNopLogger(t *testing.T) {
	var logger types.Logger = NewNop()

	require.NotPanics(t, func() {
		logger.Debug("m", "k", "v")
		logger.Info("m", "k", "v")
		logger.Warn("m", "k", "v")
		logger.Error("m", "k", "v")
		logger.Fatal("m", "k", "v")
	})
}

func TestOrNop(t *testing.T) {
	require.IsType(t, &NopLogger{}, OrNop(nil))

	custom := NewSlogDefault()
	require.Same(t, custom, OrNop(custom))
}
