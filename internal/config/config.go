package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Values come from an optional
// YAML file with environment variables taking precedence.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Debate    DebateConfig    `yaml:"debate"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type OllamaConfig struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

type DebateConfig struct {
	Rounds        int           `yaml:"rounds"`
	TurnTimeout   time.Duration `yaml:"turn_timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	HistoryLimit  int           `yaml:"history_limit"`
}

type BroadcastConfig struct {
	BufferSize      int           `yaml:"buffer_size"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	MaxSubscribers  int           `yaml:"max_subscribers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Load builds the configuration from environment variables over defaults.
func Load() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile layers a YAML file between the defaults and the environment.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL:      "http://localhost:11434",
			DefaultModel: "llama3",
		},
		Debate: DebateConfig{
			Rounds:        5,
			TurnTimeout:   30 * time.Second,
			MaxRetries:    3,
			RetryDelay:    2 * time.Second,
			MaxConcurrent: 10,
			HistoryLimit:  200,
		},
		Broadcast: BroadcastConfig{
			BufferSize:      256,
			DeliveryTimeout: 5 * time.Second,
			MaxSubscribers:  100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getDurationEnv("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Ollama.BaseURL = getEnv("OLLAMA_BASE_URL", c.Ollama.BaseURL)
	c.Ollama.DefaultModel = getEnv("OLLAMA_DEFAULT_MODEL", c.Ollama.DefaultModel)

	c.Debate.Rounds = getIntEnv("DEBATE_ROUNDS", c.Debate.Rounds)
	c.Debate.TurnTimeout = getDurationEnv("DEBATE_TURN_TIMEOUT", c.Debate.TurnTimeout)
	c.Debate.MaxRetries = getIntEnv("DEBATE_MAX_RETRIES", c.Debate.MaxRetries)
	c.Debate.RetryDelay = getDurationEnv("DEBATE_RETRY_DELAY", c.Debate.RetryDelay)
	c.Debate.MaxConcurrent = getIntEnv("DEBATE_MAX_CONCURRENT", c.Debate.MaxConcurrent)
	c.Debate.HistoryLimit = getIntEnv("DEBATE_HISTORY_LIMIT", c.Debate.HistoryLimit)

	c.Broadcast.BufferSize = getIntEnv("BROADCAST_BUFFER_SIZE", c.Broadcast.BufferSize)
	c.Broadcast.DeliveryTimeout = getDurationEnv("BROADCAST_DELIVERY_TIMEOUT", c.Broadcast.DeliveryTimeout)
	c.Broadcast.MaxSubscribers = getIntEnv("BROADCAST_MAX_SUBSCRIBERS", c.Broadcast.MaxSubscribers)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base URL is required")
	}
	if c.Debate.Rounds <= 0 {
		return fmt.Errorf("debate rounds must be positive, got %d", c.Debate.Rounds)
	}
	if c.Debate.TurnTimeout <= 0 {
		return fmt.Errorf("turn timeout must be positive")
	}
	if c.Debate.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent debates must be positive")
	}
	if c.Broadcast.BufferSize <= 0 {
		return fmt.Errorf("broadcast buffer size must be positive")
	}
	return nil
}

// Addr returns the server's listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
