package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	if err := validateJudgeConfig(cfg.Judge); err != nil {
		return err
	}

	if cfg.Guard.Enabled && strings.TrimSpace(cfg.Guard.BundleDir) == "" {
		return errors.New("guard enabled but bundle_dir is empty")
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validateJudgeConfig(j JudgeConfig) error {
	if !strings.EqualFold(j.Type, "openai") {
		return fmt.Errorf("judge.type must be openai, got %q", j.Type)
	}
	if j.BaseURL != "" {
		u, err := url.Parse(j.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("judge has invalid base_url")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("judge base_url must be http or https")
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}
