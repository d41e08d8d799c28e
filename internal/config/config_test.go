package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ollama:
  url: http://localhost:11434
tts:
  url: http://localhost:8880
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, "af_heart", cfg.TTS.Voice)
	assert.Equal(t, "a", cfg.TTS.LangCode)
	assert.Equal(t, 1.0, cfg.TTS.Speed)
	assert.Equal(t, 3, cfg.Grid.Rows)
	assert.Equal(t, "vids", cfg.Grid.Folder)
	assert.Equal(t, "db/context_history.db", cfg.History.DBPath)
	assert.Equal(t, "!neku", cfg.Discord.CommandPrefix)
	assert.Equal(t, "artifacts", cfg.Media.OutputDir)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ollama:
  url: http://ollama:11434
  model: mistral
  timeout: 45s
tts:
  url: http://kokoro:8880
  voice: am_adam
  speed: 1.2
grid:
  folder: /data/vids
  rows: 5
discord:
  enabled: true
  command_prefix: "!bot"
`))
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, 45*time.Second, cfg.Ollama.GetTimeout())
	assert.Equal(t, "am_adam", cfg.TTS.Voice)
	assert.Equal(t, 1.2, cfg.TTS.Speed)
	assert.Equal(t, 5, cfg.Grid.Rows)
	assert.True(t, cfg.Discord.Enabled)
	assert.Equal(t, "!bot", cfg.Discord.CommandPrefix)
}

func TestGetTimeoutFallsBack(t *testing.T) {
	o := OllamaConfig{Timeout: "not-a-duration"}
	assert.Equal(t, 120*time.Second, o.GetTimeout())

	e := EmotionConfig{}
	assert.Equal(t, 30*time.Second, e.GetTimeout())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing ollama url", func(c *Config) { c.Ollama.URL = "" }, "ollama.url"},
		{"missing tts url", func(c *Config) { c.TTS.URL = "" }, "tts.url"},
		{"zero grid rows", func(c *Config) { c.Grid.Rows = 0 }, "grid.rows"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Ollama: OllamaConfig{URL: "http://x"},
				TTS:    TTSConfig{URL: "http://y"},
				Grid:   GridConfig{Rows: 3},
			}
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "ollama: [unclosed"))
	assert.Error(t, err)
}
