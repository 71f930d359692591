package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/aegis-ai/aegis/internal/aegisguard"
	"github.com/aegis-ai/aegis/internal/config"
	"github.com/aegis-ai/aegis/internal/judge"
	"github.com/aegis-ai/aegis/internal/policy"
	"github.com/aegis-ai/aegis/internal/provider"
	"github.com/aegis-ai/aegis/internal/server"
	"github.com/aegis-ai/aegis/internal/shield"
	"github.com/aegis-ai/aegis/internal/telemetry"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "aegis.yaml", "Path to Aegis config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	ctx := context.Background()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.Service,
		Version:  cfg.Telemetry.Version,
	})
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}
	defer tel.Shutdown(ctx)

	var policies policy.Service
	if cfg.Policy.Path != "" {
		policies = policy.NewFileService(cfg.Policy.Path)
	} else {
		policies = policy.NewStaticService(policy.Default())
	}

	opts := []shield.Option{
		shield.WithDetectorTimeout(time.Duration(cfg.Shield.DetectorTimeoutSeconds) * time.Second),
		shield.WithTracer(tel.Tracer()),
		shield.WithTelemetry(tel),
	}

	apiKey := os.Getenv(cfg.Judge.APIKeyEnv)
	if apiKey == "" {
		log.Printf("judge api key env %s is empty; judge rules will report unavailable", cfg.Judge.APIKeyEnv)
	}
	judgeProvider := provider.NewOpenAI(cfg.Judge.BaseURL, apiKey,
		time.Duration(cfg.Judge.TimeoutSeconds)*time.Second, cfg.Judge.MaxResponseBytes)
	opts = append(opts, shield.WithDetector(policy.KindJudge, judge.New(judgeProvider, cfg.Judge.Model)))

	if cfg.Guard.Enabled {
		model, err := aegisguard.LoadModel(cfg.Guard.BundleDir, cfg.Guard.SeqLen)
		if err != nil {
			log.Fatalf("failed to load guard model: %v", err)
		}
		defer model.Close()
		opts = append(opts, shield.WithDetector(policy.KindModel, aegisguard.NewDetector(model)))
	}

	srv := server.New(cfg, shield.New(opts...), policies)

	log.Printf("Starting Aegis on %s...", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
