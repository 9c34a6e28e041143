// Package calculator holds the pure decision math of the rebalancing engine:
// reserve sizing, target allocation, and the rebalance trigger. Nothing in
// this package performs I/O or keeps state; identical inputs always produce
// identical outputs.
package calculator

import (
	"fmt"

	"VaultAgent/internal/model"
)

// InvariantError reports a snapshot figure that violates a hard invariant.
// It aborts the current cycle; the loop retries after a full backoff.
type InvariantError struct {
	Field string
	Value float64
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s = %f", e.Field, e.Value)
}

// ReserveFigures is the output of the reserve calculation.
type ReserveFigures struct {
	RequiredReserves    float64
	SafetyBuffer        float64
	TotalReservesNeeded float64
	DeployableFunds     float64
	CurrentReserveRatio float64
}

// ComputeReserves derives the reserve and deployable-capital figures from a
// snapshot. bufferFactor is the safety margin applied on top of the strictly
// required reserves (default 0.2).
//
// The reserve ratio is totalReservesNeeded / availableLiquidity; zero
// liquidity yields ratio 0 as an explicit degenerate case, not an error.
func ComputeReserves(snap *model.ProtocolSnapshot, bufferFactor float64) (ReserveFigures, error) {
	if snap.AvailableLiquidity < 0 {
		return ReserveFigures{}, InvariantError{Field: "available_liquidity", Value: snap.AvailableLiquidity}
	}
	if snap.TotalReservesRequired < 0 {
		return ReserveFigures{}, InvariantError{Field: "total_reserves_required", Value: snap.TotalReservesRequired}
	}

	required := snap.TotalReservesRequired
	buffer := required * bufferFactor
	needed := required + buffer

	deployable := snap.AvailableLiquidity - needed
	if deployable < 0 {
		deployable = 0
	}

	ratio := 0.0
	if snap.AvailableLiquidity > 0 {
		ratio = needed / snap.AvailableLiquidity
	}

	return ReserveFigures{
		RequiredReserves:    required,
		SafetyBuffer:        buffer,
		TotalReservesNeeded: needed,
		DeployableFunds:     deployable,
		CurrentReserveRatio: ratio,
	}, nil
}
