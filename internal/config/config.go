package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds Aegis configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Judge     JudgeConfig     `yaml:"judge"`
	Policy    PolicyConfig    `yaml:"policy"`
	Guard     GuardConfig     `yaml:"guard"`
	Shield    ShieldConfig    `yaml:"shield"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
}

// JudgeConfig configures the LLM provider backing judge rules.
type JudgeConfig struct {
	Type             string `yaml:"type"`               // e.g. "openai"
	BaseURL          string `yaml:"base_url"`           // e.g. "https://api.openai.com/v1"
	APIKeyEnv        string `yaml:"api_key_env"`        // e.g. "OPENAI_API_KEY"
	Model            string `yaml:"model"`              // e.g. "gpt-4o-mini"
	TimeoutSeconds   int    `yaml:"timeout_seconds"`    // per-request timeout
	MaxResponseBytes int64  `yaml:"max_response_bytes"` // response body cap
}

type PolicyConfig struct {
	Path string `yaml:"path"` // YAML policy file; empty means built-in default policy
}

// GuardConfig configures the local classifier used by model rules.
type GuardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BundleDir string `yaml:"bundle_dir"` // directory with aegisguard.onnx, label_map.json, tokenizer/
	SeqLen    int    `yaml:"seq_len"`
}

type ShieldConfig struct {
	DetectorTimeoutSeconds int `yaml:"detector_timeout_seconds"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
	Service  string `yaml:"service"`
	Version  string `yaml:"version"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Judge: JudgeConfig{
			Type:             "openai",
			BaseURL:          "https://api.openai.com/v1",
			APIKeyEnv:        "OPENAI_API_KEY",
			Model:            "gpt-4o-mini",
			TimeoutSeconds:   30,
			MaxResponseBytes: 1 << 20,
		},
		Guard: GuardConfig{
			SeqLen: 256,
		},
		Shield: ShieldConfig{
			DetectorTimeoutSeconds: 10,
		},
		Telemetry: TelemetryConfig{
			Service: "aegis",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	if cfg.Judge.Type == "" {
		cfg.Judge.Type = "openai"
	}
	if cfg.Judge.BaseURL == "" {
		cfg.Judge.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Judge.APIKeyEnv == "" {
		cfg.Judge.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Judge.Model == "" {
		cfg.Judge.Model = "gpt-4o-mini"
	}
	if cfg.Judge.TimeoutSeconds <= 0 {
		cfg.Judge.TimeoutSeconds = 30
	}
	if cfg.Judge.MaxResponseBytes <= 0 {
		cfg.Judge.MaxResponseBytes = 1 << 20
	}

	if cfg.Guard.SeqLen <= 0 {
		cfg.Guard.SeqLen = 256
	}

	if cfg.Shield.DetectorTimeoutSeconds <= 0 {
		cfg.Shield.DetectorTimeoutSeconds = 10
	}

	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "aegis"
	}
}
