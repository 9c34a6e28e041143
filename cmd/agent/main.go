package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"VaultAgent/internal/config"
	"VaultAgent/internal/executor"
	"VaultAgent/internal/feed"
	"VaultAgent/internal/notifier"
	"VaultAgent/internal/protocol"
	"VaultAgent/internal/recorder"
	"VaultAgent/internal/scheduler"
	"VaultAgent/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] VaultAgent starting...")

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init yield feeds
	feeds := feed.New(feed.Options{
		InitBaseURL:    cfg.Feeds.InitBaseURL,
		CircuitBaseURL: cfg.Feeds.CircuitBaseURL,
		StakingBaseURL: cfg.Feeds.StakingBaseURL,
		Timeout:        time.Duration(cfg.Feeds.TimeoutSeconds) * time.Second,
		CacheTTL:       time.Duration(cfg.Feeds.CacheTTLSeconds) * time.Second,
		Proxy:          cfg.Proxy,
	})

	// Register strategies
	registry := strategy.NewRegistry()
	for _, a := range []strategy.Adapter{
		strategy.NewLoopingAdapter(feeds),
		strategy.NewCompoundVaultAdapter(feeds),
		strategy.NewStakingAdapter(feeds),
	} {
		if err := registry.Register(a); err != nil {
			log.Fatalf("[FATAL] register strategy: %v", err)
		}
	}
	log.Printf("[INFO] registered strategies: %v", registry.Names())

	// Init protocol provider
	var provider protocol.Provider
	if cfg.Protocol.BaseURL != "" {
		provider = protocol.NewHTTPProvider(cfg.Protocol.BaseURL, cfg.Protocol.APIKey,
			time.Duration(cfg.Protocol.TimeoutSeconds)*time.Second, cfg.Proxy)
	} else {
		log.Println("[WARN] no protocol endpoint configured, using mock provider")
		provider = &protocol.MockProvider{Liquidity: 100000}
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler and executor
	exec := executor.New(registry, provider)
	sched := scheduler.New(cfg, provider, registry, exec, rec, tn)
	go sched.Run(ctx)

	// Daily digest on cron
	c := cron.New(cron.WithSeconds())
	if tn.Enabled() {
		if _, err := c.AddFunc(cfg.Schedule.DailyReportCron, func() {
			if err := tn.SendWithRetry(ctx, sched.DailyDigest(), 3); err != nil {
				log.Printf("[ERROR] send daily digest: %v", err)
			}
		}); err != nil {
			log.Fatalf("[FATAL] register daily digest cron: %v", err)
		}
		c.Start()
		defer c.Stop()

		// Start Telegram polling
		go tn.StartPolling(ctx, sched.HandleCommand(ctx))
		log.Println("[INFO] Telegram polling started")
	}

	log.Println("[INFO] VaultAgent is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] VaultAgent stopped")
}
