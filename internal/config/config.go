// Package config handles YAML configuration loading, environment
// variable expansion, and validation.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	GenAI   GenAIConfig   `yaml:"genai"`
	Session SessionConfig `yaml:"session"`
	Sweep   SweepConfig   `yaml:"sweep"`
}

// Defaults fills zero values in every section.
func (c *Config) Defaults() {
	c.Server.defaults()
	c.Storage.defaults()
	c.GenAI.defaults()
	c.Session.defaults()
	c.Sweep.defaults()
}

// ServerConfig holds HTTP gateway settings.
type ServerConfig struct {
	Bind            string        `yaml:"bind"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c *ServerConfig) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.AllowedOrigin == "" {
		c.AllowedOrigin = "*"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// Generation calls can block for several seconds.
		c.WriteTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// StorageConfig holds the durable storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

func (c *StorageConfig) defaults() {
	if c.Path == "" {
		c.Path = "sessiond.db"
	}
}

// GenAIConfig holds the generation backend settings.
type GenAIConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	ChatModel       string        `yaml:"chat_model"`
	SummaryModel    string        `yaml:"summary_model"`
	RetrievalStore  string        `yaml:"retrieval_store"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

func (c *GenAIConfig) defaults() {
	if c.ChatModel == "" {
		c.ChatModel = "models/gemini-2.5-flash"
	}
	if c.SummaryModel == "" {
		c.SummaryModel = c.ChatModel
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 700
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// SessionConfig holds the rolling-context and retention settings.
type SessionConfig struct {
	TriggerTurns            int    `yaml:"trigger_turns"`
	KeepLastTurns           int    `yaml:"keep_last_turns"`
	HistoryMaxMessages      int    `yaml:"history_max_messages"`
	HistoryDefaultLimit     int    `yaml:"history_default_limit"`
	SystemPrompt            string `yaml:"system_prompt"`
	AllowClientSystemPrompt bool   `yaml:"allow_client_system_prompt"`
}

func (c *SessionConfig) defaults() {
	if c.TriggerTurns <= 0 {
		c.TriggerTurns = 18
	}
	if c.KeepLastTurns <= 0 {
		c.KeepLastTurns = 8
	}
	if c.HistoryMaxMessages <= 0 {
		c.HistoryMaxMessages = 500
	}
	if c.HistoryDefaultLimit <= 0 {
		c.HistoryDefaultLimit = 120
	}
}

// SweepConfig holds the idle-session expiry settings.
type SweepConfig struct {
	IdleThreshold time.Duration `yaml:"idle_threshold"`
	BatchLimit    int           `yaml:"batch_limit"`
	Schedule      string        `yaml:"schedule"`
}

func (c *SweepConfig) defaults() {
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = 24 * time.Hour
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 200
	}
	if c.Schedule == "" {
		c.Schedule = "0 * * * *"
	}
}
