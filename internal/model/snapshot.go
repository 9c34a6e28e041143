package model

import (
	"fmt"
	"math"
	"time"
)

// ProtocolSnapshot is a point-in-time view of the protocol's outstanding
// obligations and liquidity. It is produced fresh each cycle and never
// mutated afterwards.
type ProtocolSnapshot struct {
	TotalPolicies         int       `json:"total_policies"`
	ActivePolicies        []Policy  `json:"active_policies"`
	OpenPolicies          []Policy  `json:"open_policies"`
	TotalReservesRequired float64   `json:"total_reserves_required"`
	AvailableLiquidity    float64   `json:"available_liquidity"`
	PendingSettlements    []Policy  `json:"pending_settlements"`
	Timestamp             time.Time `json:"timestamp"`
}

// reserveSumTolerance absorbs float accumulation error when checking the
// reserve-sum invariant.
const reserveSumTolerance = 1e-6

// Validate checks snapshot consistency: the reserve-sum invariant and
// non-negative liquidity figures.
func (s *ProtocolSnapshot) Validate() error {
	if s.AvailableLiquidity < 0 {
		return fmt.Errorf("available liquidity must not be negative, got %f", s.AvailableLiquidity)
	}
	if s.TotalReservesRequired < 0 {
		return fmt.Errorf("total reserves required must not be negative, got %f", s.TotalReservesRequired)
	}
	sum := 0.0
	for i := range s.ActivePolicies {
		sum += s.ActivePolicies[i].RequiredReserve()
	}
	if math.Abs(sum-s.TotalReservesRequired) > reserveSumTolerance {
		return fmt.Errorf("total_reserves_required %f does not match active policy sum %f", s.TotalReservesRequired, sum)
	}
	return nil
}

// CountExpiringWithin returns how many active policies expire within the
// given window. Policies without an expiry timestamp are skipped.
func (s *ProtocolSnapshot) CountExpiringWithin(window time.Duration, now time.Time) int {
	count := 0
	for i := range s.ActivePolicies {
		remaining, ok := s.ActivePolicies[i].TimeToExpiry(now)
		if ok && remaining < int64(window.Seconds()) {
			count++
		}
	}
	return count
}
