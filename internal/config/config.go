// Package config defines service configuration and its loading order:
// defaults, then an optional YAML file, then VOICECOACH_* env vars.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the sqlite database file backing quotas and results.
	DBPath string `koanf:"db_path"`

	// SharedSecret signs inbound service-to-service requests (HMAC-SHA256).
	SharedSecret string `koanf:"shared_secret"`

	// Audio model gateway (OpenAI-style chat completions, audio input).
	AudioModelURL string `koanf:"audio_model_url"`
	AudioModel    string `koanf:"audio_model"`

	// Text model used for the best-effort report summary.
	TextModelURL string `koanf:"text_model_url"`
	TextModel    string `koanf:"text_model"`

	ModelAPIKey string `koanf:"model_api_key"`

	// Object storage for call recordings.
	AudioBucket string `koanf:"audio_bucket"`
	AWSRegion   string `koanf:"aws_region"`

	// Owner lookup API of the surrounding product.
	OwnerAPIURL   string `koanf:"owner_api_url"`
	OwnerAPIToken string `koanf:"owner_api_token"`

	// MaxAudioBytes rejects a run before download when exceeded.
	MaxAudioBytes int64 `koanf:"max_audio_bytes"`

	// QueueSize bounds the in-memory job queue; WorkerCount the pool.
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`

	// DefaultMonthlyLimit applies when no quota override is configured.
	DefaultMonthlyLimit int `koanf:"default_monthly_limit"`
}

func Defaults() *Config {
	return &Config{
		Addr:                ":8080",
		DBPath:              "voicecoach.sqlite",
		AudioModel:          "gpt-4o-audio-preview",
		TextModel:           "gpt-4o-mini",
		AWSRegion:           "us-east-1",
		MaxAudioBytes:       150 << 20,
		QueueSize:           256,
		WorkerCount:         4,
		DefaultMonthlyLimit: 20,
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Precedence (low -> high):
//  1. Defaults()
//  2. YAML file named by VOICECOACH_CONFIG
//  3. env (prefix VOICECOACH_, e.g. VOICECOACH_DB_PATH -> db_path)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("VOICECOACH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("VOICECOACH_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "voicecoach_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.MaxAudioBytes <= 0 {
		return nil, errors.New("max_audio_bytes must be positive")
	}
	return &cfg, nil
}
