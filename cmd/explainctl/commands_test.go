package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/edgard/explainbot/internal/database"
)

const testConfig = `
gemini:
  api_key: secret-key
telegram:
  token: "123456:secret-token"
  admin_user_id: 42
keyword_prompts:
  enable: true
  match_strategy: highest
  rules:
    - keywords: ["算法"]
      prompt: "算法框架"
      priority: 1
    - keywords: ["历史"]
      prompt: "历史框架"
      priority: 5
    - keywords: []
      prompt: "broken"
detailed_explanation:
  segment_length: 10
  max_segments: 3
segmentation:
  algorithm: length
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestMatchCmd(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, testConfig)

	out, errOut, err := execute(t, "", "--config", path, "match", "请讲讲这个算法的历史")
	require.NoError(t, err)
	assert.Equal(t, "历史框架\n", out)
	assert.Contains(t, errOut, "warning:")

	out, _, err = execute(t, "", "-c", path, "match", "你好")
	require.NoError(t, err)
	assert.Contains(t, out, "no match")
}

func TestToolsCmd(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, testConfig)

	tests := []struct {
		args []string
		want string
	}{
		{nil, "web_search\n"},
		{[]string{"search_online", "calculator"}, "search_online\n"},
		{[]string{"calculator"}, "no search tool\n"},
	}
	for _, tt := range tests {
		out, _, err := execute(t, "", append([]string{"-c", path, "tools"}, tt.args...)...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, out, tt.args)
	}
}

func TestSegmentCmd(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, testConfig)

	out, _, err := execute(t, strings.Repeat("字", 25), "-c", path, "segment")
	require.NoError(t, err)
	assert.Contains(t, out, "--- 1/3 (10 chars) ---")
	assert.Contains(t, out, "--- 3/3 (5 chars) ---")
}

func TestConfigCmdRedactsSecrets(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, testConfig)

	out, _, err := execute(t, "", "-c", path, "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret-key")
	assert.NotContains(t, out, "secret-token")

	var dumped map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &dumped))
	gem, ok := dumped["gemini"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, redacted, gem["api_key"])
	assert.Contains(t, dumped, "keyword_prompts")
}

func TestInvalidConfigFails(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "gemini: [unclosed")

	_, _, err := execute(t, "", "-c", path, "match", "x")
	assert.Error(t, err)
}

func TestContextCmd(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := database.NewDB(dbPath)
	require.NoError(t, err)
	store := database.NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.SaveMessage(context.Background(), &database.Message{
			ChatID:    -100,
			MessageID: i,
			UserID:    10 + i,
			Content:   fmt.Sprintf("line %d", i),
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	database.CloseDB(db)

	path := writeConfig(t, testConfig+"database:\n  path: "+dbPath+"\n")

	out, _, err := execute(t, "", "-c", path, "context", "-100")
	require.NoError(t, err)
	assert.Equal(t, "[2024-05-01 12:01:00] UID 11: line 1\n[2024-05-01 12:02:00] UID 12: line 2\n[2024-05-01 12:03:00] UID 13: line 3\n", out)

	out, _, err = execute(t, "", "-c", path, "context", "-200")
	require.NoError(t, err)
	assert.Equal(t, "no context\n", out)

	_, _, err = execute(t, "", "-c", path, "context", "chat")
	assert.Error(t, err)
}
