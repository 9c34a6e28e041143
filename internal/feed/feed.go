// Package feed fetches live yield figures from the external protocol APIs
// backing each strategy. Every fetch can fail; callers are expected to
// substitute their documented fallback constant, so errors returned here
// never travel further than the adapter boundary.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures the feed client endpoints and caching.
type Options struct {
	InitBaseURL    string
	CircuitBaseURL string
	StakingBaseURL string
	Timeout        time.Duration
	CacheTTL       time.Duration
	Proxy          string
}

// Client aggregates the per-protocol yield feeds with a short TTL cache so
// repeated reads within one cycle don't hammer the upstream APIs.
type Client struct {
	init    *resty.Client
	circuit *resty.Client
	staking *resty.Client

	ttl   time.Duration
	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	apy       float64
	fetchedAt time.Time
}

// New creates a feed client for the configured protocol endpoints.
func New(opts Options) *Client {
	newClient := func(baseURL string) *resty.Client {
		c := resty.New()
		c.SetBaseURL(baseURL)
		c.SetTimeout(opts.Timeout)
		if opts.Proxy != "" {
			c.SetProxy(opts.Proxy)
		}
		return c
	}
	return &Client{
		init:    newClient(opts.InitBaseURL),
		circuit: newClient(opts.CircuitBaseURL),
		staking: newClient(opts.StakingBaseURL),
		ttl:     opts.CacheTTL,
		cache:   make(map[string]cacheEntry),
	}
}

type initMarket struct {
	Symbol    string  `json:"symbol"`
	SupplyAPY float64 `json:"supplyAPY"` // fraction, e.g. 0.042
	BorrowAPY float64 `json:"borrowAPY"`
}

type initRewards struct {
	TotalAPY float64 `json:"totalAPY"`
}

type circuitVault struct {
	Name string  `json:"name"`
	APY  float64 `json:"apy"` // fraction
}

type stakingMetrics struct {
	StakingAPY float64 `json:"stakingAPY"` // fraction
	FeesAPY    float64 `json:"feesAPY"`
}

// loopingLeverage is the leverage ratio of the cmETH looping position.
const loopingLeverage = 3.0

// compoundingBoost reflects the auto-compounding uplift of the Circuit vault.
const compoundingBoost = 1.15

// InitLoopingAPY returns the leveraged looping APY in percent:
// supply×leverage − borrow×(leverage−1) + rewards, floored at zero.
func (c *Client) InitLoopingAPY(ctx context.Context) (float64, error) {
	if apy, ok := c.cached("init_looping"); ok {
		return apy, nil
	}

	var markets []initMarket
	resp, err := c.init.R().SetContext(ctx).SetResult(&markets).Get("/v1/markets")
	if err != nil {
		return 0, fmt.Errorf("fetch init markets: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("init markets API returned status %d", resp.StatusCode())
	}

	var rewards initRewards
	resp, err = c.init.R().SetContext(ctx).SetResult(&rewards).Get("/v1/rewards")
	if err != nil {
		return 0, fmt.Errorf("fetch init rewards: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("init rewards API returned status %d", resp.StatusCode())
	}

	supply, borrow, found := 0.0, 0.0, false
	for _, m := range markets {
		switch m.Symbol {
		case "cmETH":
			supply = m.SupplyAPY * 100
			found = true
		case "USDT":
			borrow = m.BorrowAPY * 100
		}
	}
	if !found {
		return 0, fmt.Errorf("cmETH market missing from init response")
	}

	apy := supply*loopingLeverage - borrow*(loopingLeverage-1) + rewards.TotalAPY*100
	if apy < 0 {
		apy = 0
	}
	c.store("init_looping", apy)
	return apy, nil
}

// CircuitVaultAPY returns the auto-compounding vault APY in percent.
func (c *Client) CircuitVaultAPY(ctx context.Context) (float64, error) {
	if apy, ok := c.cached("circuit_vault"); ok {
		return apy, nil
	}

	var vaults []circuitVault
	resp, err := c.circuit.R().SetContext(ctx).SetResult(&vaults).Get("/v1/vaults")
	if err != nil {
		return 0, fmt.Errorf("fetch circuit vaults: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("circuit API returned status %d", resp.StatusCode())
	}
	if len(vaults) == 0 {
		return 0, fmt.Errorf("circuit API returned no vaults")
	}

	apy := vaults[0].APY * 100 * compoundingBoost
	c.store("circuit_vault", apy)
	return apy, nil
}

// StakingAPY returns the native staking APY in percent (base + fee share).
func (c *Client) StakingAPY(ctx context.Context) (float64, error) {
	if apy, ok := c.cached("mnt_staking"); ok {
		return apy, nil
	}

	var metrics stakingMetrics
	resp, err := c.staking.R().SetContext(ctx).SetResult(&metrics).Get("/v1/staking/metrics")
	if err != nil {
		return 0, fmt.Errorf("fetch staking metrics: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("staking API returned status %d", resp.StatusCode())
	}

	apy := (metrics.StakingAPY + metrics.FeesAPY) * 100
	c.store("mnt_staking", apy)
	return apy, nil
}

func (c *Client) cached(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return 0, false
	}
	return entry.apy, true
}

func (c *Client) store(key string, apy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{apy: apy, fetchedAt: time.Now()}
}
