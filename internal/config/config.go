package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// StrategyWeight describes one registered strategy's base allocation weight
// and static risk score. Order matters: planner output follows config order.
type StrategyWeight struct {
	Name      string  `yaml:"name"`
	Weight    float64 `yaml:"weight"`
	RiskScore float64 `yaml:"risk_score"`
}

// Config holds all application configuration.
type Config struct {
	Agent struct {
		DeltaTHours              float64 `yaml:"delta_t_hours"`
		MinReallocationThreshold float64 `yaml:"min_reallocation_threshold"` // APY spread, percent
		ReserveTargetRatio       float64 `yaml:"reserve_target_ratio"`
		SafetyBufferFactor       float64 `yaml:"safety_buffer_factor"`
		HighActivityThreshold    int     `yaml:"high_activity_threshold"`
		LowActivityThreshold     int     `yaml:"low_activity_threshold"`
		ExpiryWindowSeconds      int     `yaml:"expiry_window_seconds"`
		ErrorBackoffSeconds      int     `yaml:"error_backoff_seconds"`
	} `yaml:"agent"`
	Allocation struct {
		Weights []StrategyWeight `yaml:"weights"`
	} `yaml:"allocation"`
	Protocol struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"protocol"`
	Feeds struct {
		InitBaseURL     string `yaml:"init_base_url"`
		CircuitBaseURL  string `yaml:"circuit_base_url"`
		StakingBaseURL  string `yaml:"staking_base_url"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"feeds"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		DailyReportCron string `yaml:"daily_report_cron"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PROTOCOL_BASE_URL"); v != "" {
		cfg.Protocol.BaseURL = v
	}
	if v := os.Getenv("PROTOCOL_API_KEY"); v != "" {
		cfg.Protocol.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("DELTA_T_HOURS"); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Agent.DeltaTHours = hours
		}
	}
	if v := os.Getenv("RESERVE_TARGET_RATIO"); v != "" {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Agent.ReserveTargetRatio = ratio
		}
	}

	// Defaults
	if cfg.Agent.DeltaTHours == 0 {
		cfg.Agent.DeltaTHours = 6
	}
	if cfg.Agent.MinReallocationThreshold == 0 {
		cfg.Agent.MinReallocationThreshold = 0.5
	}
	if cfg.Agent.ReserveTargetRatio == 0 {
		cfg.Agent.ReserveTargetRatio = 0.15
	}
	if cfg.Agent.SafetyBufferFactor == 0 {
		cfg.Agent.SafetyBufferFactor = 0.2
	}
	if cfg.Agent.HighActivityThreshold == 0 {
		cfg.Agent.HighActivityThreshold = 10
	}
	if cfg.Agent.LowActivityThreshold == 0 {
		cfg.Agent.LowActivityThreshold = 3
	}
	if cfg.Agent.ExpiryWindowSeconds == 0 {
		cfg.Agent.ExpiryWindowSeconds = 3600
	}
	if cfg.Agent.ErrorBackoffSeconds == 0 {
		cfg.Agent.ErrorBackoffSeconds = 60
	}
	if len(cfg.Allocation.Weights) == 0 {
		cfg.Allocation.Weights = []StrategyWeight{
			{Name: "init_looping", Weight: 0.45, RiskScore: 0.7},
			{Name: "circuit_vault", Weight: 0.35, RiskScore: 0.4},
			{Name: "mnt_staking", Weight: 0.20, RiskScore: 0.2},
		}
	}
	if cfg.Protocol.TimeoutSeconds == 0 {
		cfg.Protocol.TimeoutSeconds = 30
	}
	if cfg.Feeds.InitBaseURL == "" {
		cfg.Feeds.InitBaseURL = "https://api.init.capital"
	}
	if cfg.Feeds.CircuitBaseURL == "" {
		cfg.Feeds.CircuitBaseURL = "https://api.circuit.farm"
	}
	if cfg.Feeds.StakingBaseURL == "" {
		cfg.Feeds.StakingBaseURL = "https://api.mantle.xyz"
	}
	if cfg.Feeds.TimeoutSeconds == 0 {
		cfg.Feeds.TimeoutSeconds = 10
	}
	if cfg.Feeds.CacheTTLSeconds == 0 {
		cfg.Feeds.CacheTTLSeconds = 300
	}
	if cfg.Schedule.DailyReportCron == "" {
		cfg.Schedule.DailyReportCron = "0 0 9 * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Protocol.BaseURL == "" {
		return fmt.Errorf("protocol.base_url is required")
	}
	if c.Agent.DeltaTHours <= 0 {
		return fmt.Errorf("agent.delta_t_hours must be positive")
	}
	if c.Agent.ReserveTargetRatio <= 0 || c.Agent.ReserveTargetRatio >= 1 {
		return fmt.Errorf("agent.reserve_target_ratio must be in (0, 1)")
	}
	if c.Agent.SafetyBufferFactor < 0 {
		return fmt.Errorf("agent.safety_buffer_factor must not be negative")
	}
	if c.Agent.HighActivityThreshold <= c.Agent.LowActivityThreshold {
		return fmt.Errorf("agent.high_activity_threshold must exceed low_activity_threshold")
	}
	if len(c.Allocation.Weights) < 2 {
		return fmt.Errorf("allocation.weights must list at least two strategies")
	}
	for _, w := range c.Allocation.Weights {
		if w.Name == "" {
			return fmt.Errorf("allocation.weights entries must be named")
		}
		if w.Weight <= 0 {
			return fmt.Errorf("allocation weight for %s must be positive", w.Name)
		}
	}
	return nil
}

// CyclePeriod returns the monitoring cycle period as a duration.
func (c *Config) CyclePeriod() time.Duration {
	return time.Duration(c.Agent.DeltaTHours * float64(time.Hour))
}

// ErrorBackoff returns the short retry delay applied after a failed cycle.
func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Agent.ErrorBackoffSeconds) * time.Second
}

// ExpiryWindow returns the look-ahead window for imminent policy expirations.
func (c *Config) ExpiryWindow() time.Duration {
	return time.Duration(c.Agent.ExpiryWindowSeconds) * time.Second
}
