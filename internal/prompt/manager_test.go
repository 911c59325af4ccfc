package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".tmpl"), []byte(body), 0o644))
}

func TestBuildPrompt(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "entry", "决策点: {{.Point}}\n交易对: {{index .Context \"pair\"}}\n上下文:\n{{.ContextJSON}}")

	m, err := NewManager(dir)
	require.NoError(t, err)
	defer m.Close()

	out, err := m.BuildPrompt("entry", map[string]any{"pair": "BTCUSDT", "rsi": 28.4})
	require.NoError(t, err)
	assert.Contains(t, out, "决策点: entry")
	assert.Contains(t, out, "交易对: BTCUSDT")
	assert.Contains(t, out, `"rsi": 28.4`)
}

func TestBuildPromptMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "entry", "hi")

	m, err := NewManager(dir)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.BuildPrompt("exit", nil)
	assert.Error(t, err)
}

func TestNewManagerBadTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "entry", "{{.Unclosed")

	_, err := NewManager(dir)
	assert.Error(t, err)
}

func TestNewManagerEmptyDirPath(t *testing.T) {
	_, err := NewManager("  ")
	assert.Error(t, err)
}

func TestManagerIgnoresNonTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "entry", "ok")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# scratch"), 0o644))

	m, err := NewManager(dir)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.BuildPrompt("notes", nil)
	assert.Error(t, err)
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "entry", "v1")

	m, err := NewManager(dir)
	require.NoError(t, err)
	defer m.Close()

	writeTemplate(t, dir, "entry", "v2 {{.Point}}")
	require.NoError(t, m.reload())

	out, err := m.BuildPrompt("entry", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2 entry", out)
}
