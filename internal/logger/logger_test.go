package logger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/explainbot/internal/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, closer := logger.NewLogger("warn", true, logger.WithOutput(&buf))
	defer closer.Close()

	log.Info("dropped")
	log.Warn("kept", "chat_id", 5)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.EqualValues(t, 5, rec["chat_id"])
}

func TestNewLogger_RotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot.log")
	var buf bytes.Buffer
	log, closer := logger.NewLogger("info", false, logger.WithOutput(&buf), logger.WithRotatingFile(path, 1, 1, 1))

	log.Info("to both")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestNewLogger_EmptyFilePathIsIgnored(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, closer := logger.NewLogger("info", false, logger.WithOutput(&buf), logger.WithRotatingFile("", 1, 1, 1))
	log.Info("stdout only")
	assert.NoError(t, closer.Close())
	assert.Contains(t, buf.String(), "stdout only")
}

func TestGocronLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, closer := logger.NewLogger("debug", true, logger.WithOutput(&buf))
	defer closer.Close()

	gl := logger.NewGocronLogger(log)
	gl.Error("remove job", "error", fmt.Errorf("lookup: %w", gocron.ErrJobNotFound), "odd")
	gl.Debug("tick", "job", "history_prune")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "gocron", rec["component"])
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, true, rec["job_missing"])

	require.NoError(t, json.Unmarshal(lines[1], &rec))
	assert.Equal(t, "history_prune", rec["job"])
}
