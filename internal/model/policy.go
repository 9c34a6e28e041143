package model

import "time"

// PolicyState is the lifecycle state of a payout policy.
type PolicyState string

const (
	PolicyOpen      PolicyState = "Open"
	PolicyActive    PolicyState = "Active"
	PolicySettled   PolicyState = "Settled"
	PolicyCancelled PolicyState = "Cancelled"
)

// Policy represents a payout commitment that must be reserved against while active.
type Policy struct {
	ID              uint64      `json:"policy_id"`
	Seller          string      `json:"seller"`
	Buyer           string      `json:"buyer,omitempty"`
	Token           string      `json:"token"`
	TokenSymbol     string      `json:"token_symbol"`
	Amount          float64     `json:"amount"`
	PayoutToken     string      `json:"payout_token"`
	PayoutAmount    float64     `json:"payout_amount"`
	Duration        int64       `json:"duration"`
	UpsideShareBps  int         `json:"upside_share_bps"`
	EntryPrice      float64     `json:"entry_price"`
	StartTimestamp  int64       `json:"start_timestamp,omitempty"`
	ExpiryTimestamp int64       `json:"expiry_timestamp,omitempty"`
	State           PolicyState `json:"state"`
}

// IsActive reports whether the policy currently requires reserve coverage.
func (p *Policy) IsActive() bool {
	return p.State == PolicyActive
}

// TimeToExpiry returns the seconds remaining until expiry, floored at zero.
// The second return value is false when the policy has no expiry set.
func (p *Policy) TimeToExpiry(now time.Time) (int64, bool) {
	if p.ExpiryTimestamp == 0 {
		return 0, false
	}
	remaining := p.ExpiryTimestamp - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// RequiredReserve returns the liquidity that must be held back for this policy.
func (p *Policy) RequiredReserve() float64 {
	if p.IsActive() {
		return p.PayoutAmount
	}
	return 0
}
