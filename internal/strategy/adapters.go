package strategy

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"VaultAgent/internal/feed"
)

// Documented fallback APYs, substituted when the corresponding feed is down.
const (
	loopingFallbackAPY  = 8.5
	compoundFallbackAPY = 6.8
	stakingFallbackAPY  = 4.5
)

// LoopingAdapter is the leveraged cmETH looping strategy on INIT Capital.
// Highest yield, highest risk (leverage).
type LoopingAdapter struct {
	feeds    *feed.Client
	deployed float64
}

func NewLoopingAdapter(feeds *feed.Client) *LoopingAdapter {
	return &LoopingAdapter{feeds: feeds}
}

func (a *LoopingAdapter) Name() string         { return "init_looping" }
func (a *LoopingAdapter) RiskScore() float64   { return 0.7 }
func (a *LoopingAdapter) FallbackAPY() float64 { return loopingFallbackAPY }

func (a *LoopingAdapter) CurrentAPY(ctx context.Context) (float64, bool) {
	apy, err := a.feeds.InitLoopingAPY(ctx)
	if err != nil {
		log.Printf("[WARN] init looping APY fetch failed: %v, using fallback %.1f", err, loopingFallbackAPY)
		return loopingFallbackAPY, true
	}
	return apy, false
}

func (a *LoopingAdapter) Deposit(ctx context.Context, amount float64) Result {
	return deposit(ctx, a.Name(), amount, &a.deployed)
}

func (a *LoopingAdapter) Withdraw(ctx context.Context, amount float64) Result {
	return withdraw(ctx, a.Name(), amount, &a.deployed)
}

// CompoundVaultAdapter is the Circuit Protocol auto-compounding vault.
// Medium yield, medium risk.
type CompoundVaultAdapter struct {
	feeds    *feed.Client
	deployed float64
}

func NewCompoundVaultAdapter(feeds *feed.Client) *CompoundVaultAdapter {
	return &CompoundVaultAdapter{feeds: feeds}
}

func (a *CompoundVaultAdapter) Name() string         { return "circuit_vault" }
func (a *CompoundVaultAdapter) RiskScore() float64   { return 0.4 }
func (a *CompoundVaultAdapter) FallbackAPY() float64 { return compoundFallbackAPY }

func (a *CompoundVaultAdapter) CurrentAPY(ctx context.Context) (float64, bool) {
	apy, err := a.feeds.CircuitVaultAPY(ctx)
	if err != nil {
		log.Printf("[WARN] circuit vault APY fetch failed: %v, using fallback %.1f", err, compoundFallbackAPY)
		return compoundFallbackAPY, true
	}
	return apy, false
}

func (a *CompoundVaultAdapter) Deposit(ctx context.Context, amount float64) Result {
	return deposit(ctx, a.Name(), amount, &a.deployed)
}

func (a *CompoundVaultAdapter) Withdraw(ctx context.Context, amount float64) Result {
	return withdraw(ctx, a.Name(), amount, &a.deployed)
}

// StakingAdapter is native MNT staking. Lowest yield, lowest risk.
type StakingAdapter struct {
	feeds    *feed.Client
	deployed float64
}

func NewStakingAdapter(feeds *feed.Client) *StakingAdapter {
	return &StakingAdapter{feeds: feeds}
}

func (a *StakingAdapter) Name() string         { return "mnt_staking" }
func (a *StakingAdapter) RiskScore() float64   { return 0.2 }
func (a *StakingAdapter) FallbackAPY() float64 { return stakingFallbackAPY }

func (a *StakingAdapter) CurrentAPY(ctx context.Context) (float64, bool) {
	apy, err := a.feeds.StakingAPY(ctx)
	if err != nil {
		log.Printf("[WARN] staking APY fetch failed: %v, using fallback %.1f", err, stakingFallbackAPY)
		return stakingFallbackAPY, true
	}
	return apy, false
}

func (a *StakingAdapter) Deposit(ctx context.Context, amount float64) Result {
	return deposit(ctx, a.Name(), amount, &a.deployed)
}

func (a *StakingAdapter) Withdraw(ctx context.Context, amount float64) Result {
	return withdraw(ctx, a.Name(), amount, &a.deployed)
}

// deposit and withdraw implement the shared position bookkeeping. Callers
// are already serialized per adapter by the Registry, so plain field access
// on deployed is safe.

func deposit(ctx context.Context, name string, amount float64, deployed *float64) Result {
	if err := ctx.Err(); err != nil {
		return failure(fmt.Errorf("deposit to %s aborted: %w", name, err))
	}
	if amount <= 0 {
		return failure(fmt.Errorf("deposit amount must be positive, got %.2f", amount))
	}
	*deployed += amount
	ref := uuid.New().String()
	log.Printf("[INFO] deployed %.2f to %s (position %.2f, ref %s)", amount, name, *deployed, ref)
	return success(ref)
}

func withdraw(ctx context.Context, name string, amount float64, deployed *float64) Result {
	if err := ctx.Err(); err != nil {
		return failure(fmt.Errorf("withdraw from %s aborted: %w", name, err))
	}
	if amount <= 0 {
		return failure(fmt.Errorf("withdraw amount must be positive, got %.2f", amount))
	}
	if amount > *deployed {
		return failure(fmt.Errorf("withdraw %.2f exceeds %s position %.2f", amount, name, *deployed))
	}
	*deployed -= amount
	ref := uuid.New().String()
	log.Printf("[INFO] withdrew %.2f from %s (position %.2f, ref %s)", amount, name, *deployed, ref)
	return success(ref)
}
