package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the Neku bot.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Persona PersonaConfig `yaml:"persona"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	TTS     TTSConfig     `yaml:"tts"`
	Emotion EmotionConfig `yaml:"emotion"`
	Grid    GridConfig    `yaml:"grid"`
	History HistoryConfig `yaml:"history"`
	Discord DiscordConfig `yaml:"discord"`
	Media   MediaConfig   `yaml:"media"`
}

// ServerConfig defines the metrics/health HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PersonaConfig defines the character fed into the chat system prompt.
type PersonaConfig struct {
	BotName        string `yaml:"bot_name"`
	BotPrompt      string `yaml:"bot_prompt"`
	BotPersonality string `yaml:"bot_personality"`
	BotSituation   string `yaml:"bot_situation"`
}

// OllamaConfig defines chat model connection settings.
type OllamaConfig struct {
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// GetTimeout returns the timeout as a time.Duration.
func (o *OllamaConfig) GetTimeout() time.Duration {
	if o.Timeout == "" {
		return 120 * time.Second
	}
	d, err := time.ParseDuration(o.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// TTSConfig defines speech synthesis backend settings.
type TTSConfig struct {
	URL      string  `yaml:"url"`
	Voice    string  `yaml:"voice"`
	LangCode string  `yaml:"lang_code"`
	Speed    float64 `yaml:"speed"`
	Timeout  string  `yaml:"timeout"`
}

// GetTimeout returns the timeout as a time.Duration.
func (t *TTSConfig) GetTimeout() time.Duration {
	if t.Timeout == "" {
		return 120 * time.Second
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// EmotionConfig defines the emotion classifier backend settings.
type EmotionConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// GetTimeout returns the timeout as a time.Duration.
func (e *EmotionConfig) GetTimeout() time.Duration {
	if e.Timeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GridConfig defines the animation grid source.
type GridConfig struct {
	Folder string `yaml:"folder"`
	Rows   int    `yaml:"rows"`
}

// HistoryConfig defines the conversation store location.
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// DiscordConfig defines Discord channel settings. The token comes from the
// DISCORD_TOKEN environment variable, never from the config file.
type DiscordConfig struct {
	Enabled       bool   `yaml:"enabled"`
	CommandPrefix string `yaml:"command_prefix"`
}

// MediaConfig defines output artifact settings.
type MediaConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// Load reads a yaml config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "llama3.2"
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = "af_heart"
	}
	if c.TTS.LangCode == "" {
		c.TTS.LangCode = "a"
	}
	if c.TTS.Speed == 0 {
		c.TTS.Speed = 1
	}
	if c.Grid.Rows == 0 {
		c.Grid.Rows = 3
	}
	if c.Grid.Folder == "" {
		c.Grid.Folder = "vids"
	}
	if c.History.DBPath == "" {
		c.History.DBPath = "db/context_history.db"
	}
	if c.Discord.CommandPrefix == "" {
		c.Discord.CommandPrefix = "!neku"
	}
	if c.Media.OutputDir == "" {
		c.Media.OutputDir = "artifacts"
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Ollama.URL == "" {
		return fmt.Errorf("ollama.url is required")
	}
	if c.TTS.URL == "" {
		return fmt.Errorf("tts.url is required")
	}
	if c.Grid.Rows < 1 {
		return fmt.Errorf("grid.rows must be at least 1")
	}
	return nil
}
