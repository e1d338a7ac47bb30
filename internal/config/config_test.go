package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("BRAVE_API_KEY", "")
	return dir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, "voyago")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.DefaultLLM)
	require.Contains(t, cfg.LLMs, "openai")
	assert.Equal(t, "gpt-4o-mini", cfg.LLMs["openai"].Model)
	assert.Equal(t, ":8484", cfg.Gateway.Addr)
	assert.Equal(t, 24, cfg.Gateway.SessionTTLHours)
	assert.Equal(t, 512, cfg.Retriever.ChunkSize)
	assert.Equal(t, 64, cfg.Retriever.ChunkOverlap)
	assert.Equal(t, 5, cfg.Retriever.TopK)
	assert.InDelta(t, 0.7, cfg.Retriever.VectorWeight, 1e-6)
	assert.InDelta(t, 0.3, cfg.Retriever.FTSWeight, 1e-6)
	assert.Equal(t, "travel_docs", cfg.Retriever.Collection)
	assert.Equal(t, "text-embedding-3-small", cfg.Retriever.Embedding.Model)
	assert.Equal(t, 512, cfg.Retriever.Embedding.Dimensions)
	assert.True(t, cfg.Memory.Compaction.Enabled)
	assert.Equal(t, 20, cfg.Memory.Compaction.TurnThreshold)
	assert.Equal(t, 5, cfg.Memory.Compaction.KeepRecent)
	assert.False(t, cfg.Trace.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolateConfig(t)
	writeConfig(t, dir, `
default_llm = "local"

[llm.local]
model = "llama3"
base_url = "http://localhost:11434/v1"

[gateway]
addr = ":9000"

[retriever]
chunk_size = 256
top_k = 3

[channel.telegram]
enabled = true
type = "telegram"
[channel.telegram.settings]
bot_token = "tok"
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.DefaultLLM)
	require.Contains(t, cfg.LLMs, "local")
	assert.Equal(t, "llama3", cfg.LLMs["local"].Model)
	assert.Equal(t, ":9000", cfg.Gateway.Addr)
	assert.Equal(t, 256, cfg.Retriever.ChunkSize)
	assert.Equal(t, 3, cfg.Retriever.TopK)
	// Untouched settings keep their defaults.
	assert.Equal(t, 64, cfg.Retriever.ChunkOverlap)

	require.Contains(t, cfg.Channels, "telegram")
	assert.True(t, cfg.Channels["telegram"].Enabled)
	assert.Equal(t, "tok", cfg.Channels["telegram"].Settings["bot_token"])
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateConfig(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BRAVE_API_KEY", "brave-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLMs["openai"].APIKey)
	assert.Equal(t, "brave-test", cfg.Services.Brave.APIKey)
}

func TestLoadEnvDoesNotOverrideFile(t *testing.T) {
	dir := isolateConfig(t)
	writeConfig(t, dir, `
[llm.openai]
model = "gpt-4o"
api_key = "sk-from-file"

[services.brave]
api_key = "brave-from-file"
`)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("BRAVE_API_KEY", "brave-from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.LLMs["openai"].APIKey)
	assert.Equal(t, "brave-from-file", cfg.Services.Brave.APIKey)
}
