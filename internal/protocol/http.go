package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"VaultAgent/internal/model"
)

// HTTPProvider reads protocol state from the policy indexer API.
type HTTPProvider struct {
	client *resty.Client
}

// NewHTTPProvider creates a provider for the given indexer endpoint.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, proxy string) *HTTPProvider {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	if proxy != "" {
		client.SetProxy(proxy)
	}
	return &HTTPProvider{client: client}
}

type policiesResponse struct {
	Policies []model.Policy `json:"policies"`
}

type liquidityResponse struct {
	Available float64 `json:"available"`
}

// GetProtocolSnapshot assembles a fresh snapshot from the indexer. The
// reserve total is recomputed client-side from the active policies so the
// snapshot invariant holds regardless of what the indexer reports.
func (p *HTTPProvider) GetProtocolSnapshot(ctx context.Context) (*model.ProtocolSnapshot, error) {
	active, err := p.fetchPolicies(ctx, "Active")
	if err != nil {
		return nil, fmt.Errorf("fetch active policies: %w", err)
	}
	open, err := p.fetchPolicies(ctx, "Open")
	if err != nil {
		return nil, fmt.Errorf("fetch open policies: %w", err)
	}
	liquidity, err := p.GetAvailableLiquidity(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch available liquidity: %w", err)
	}

	required := 0.0
	var pending []model.Policy
	now := time.Now()
	for i := range active {
		required += active[i].RequiredReserve()
		if remaining, ok := active[i].TimeToExpiry(now); ok && remaining == 0 {
			pending = append(pending, active[i])
		}
	}

	snap := &model.ProtocolSnapshot{
		TotalPolicies:         len(active) + len(open),
		ActivePolicies:        active,
		OpenPolicies:          open,
		TotalReservesRequired: required,
		AvailableLiquidity:    liquidity,
		PendingSettlements:    pending,
		Timestamp:             now,
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}

// GetAvailableLiquidity returns the vault's undeployed balance.
func (p *HTTPProvider) GetAvailableLiquidity(ctx context.Context) (float64, error) {
	var out liquidityResponse
	resp, err := p.client.R().SetContext(ctx).SetResult(&out).Get("/v1/vault/liquidity")
	if err != nil {
		return 0, fmt.Errorf("fetch liquidity: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("liquidity API returned status %d", resp.StatusCode())
	}
	return out.Available, nil
}

func (p *HTTPProvider) fetchPolicies(ctx context.Context, state string) ([]model.Policy, error) {
	var out policiesResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("state", state).
		SetResult(&out).
		Get("/v1/policies")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("policies API returned status %d", resp.StatusCode())
	}
	return out.Policies, nil
}
