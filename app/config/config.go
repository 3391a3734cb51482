package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Backend Backend `yaml:"backend"`
	Audio   Audio   `yaml:"audio"`
	Chat    Chat    `yaml:"chat"`
}

type Backend struct {
	// Base URL of the clinic assistant backend
	BaseURL string `yaml:"base_url" example:"https://clinic-backend.example.com" validate:"required,url"`
	// Per-request timeout in seconds for the chat/transcribe/book/admin calls
	TimeoutSeconds int `yaml:"timeout_seconds" example:"30"`
}

type Audio struct {
	// Capture input device passed to ffmpeg
	Device string `yaml:"device" example:"default"`
	// Preferred container for recorded clips
	PrimaryFormat string `yaml:"primary_format" example:"webm"`
	// Container used when the primary one is not supported by the local ffmpeg
	FallbackFormat string `yaml:"fallback_format" example:"ogg"`
	// How often buffered audio is flushed into a fragment, in milliseconds
	FlushIntervalMs int `yaml:"flush_interval_ms" example:"1000"`
}

type Chat struct {
	// Greeting shown as the first bot message of every conversation
	Greeting string `yaml:"greeting"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

const DefaultGreeting = "Hello! I am the clinic booking assistant. Tell me where and when you need a doctor."

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	ApplyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func ApplyDefaults(cfg *Config) {
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	if cfg.Audio.Device == "" {
		cfg.Audio.Device = "default"
	}
	if cfg.Audio.PrimaryFormat == "" {
		cfg.Audio.PrimaryFormat = "webm"
	}
	if cfg.Audio.FallbackFormat == "" {
		cfg.Audio.FallbackFormat = "ogg"
	}
	if cfg.Audio.FlushIntervalMs <= 0 {
		cfg.Audio.FlushIntervalMs = 1000
	}
	if cfg.Chat.Greeting == "" {
		cfg.Chat.Greeting = DefaultGreeting
	}
}
