// Package protocol reads the insurance protocol's state: outstanding
// policies and the vault's available liquidity. The snapshot provider is
// the single upstream source of truth for each monitoring cycle.
package protocol

import (
	"context"
	"time"

	"VaultAgent/internal/model"
)

// Provider is the snapshot contract the scheduler depends on.
type Provider interface {
	GetProtocolSnapshot(ctx context.Context) (*model.ProtocolSnapshot, error)
	GetAvailableLiquidity(ctx context.Context) (float64, error)
}

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	Snapshot  *model.ProtocolSnapshot
	Liquidity float64
	Err       error
}

func (m *MockProvider) GetProtocolSnapshot(_ context.Context) (*model.ProtocolSnapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Snapshot != nil {
		snap := *m.Snapshot
		snap.Timestamp = time.Now()
		return &snap, nil
	}
	return &model.ProtocolSnapshot{
		AvailableLiquidity: m.Liquidity,
		Timestamp:          time.Now(),
	}, nil
}

func (m *MockProvider) GetAvailableLiquidity(_ context.Context) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if m.Snapshot != nil {
		return m.Snapshot.AvailableLiquidity, nil
	}
	return m.Liquidity, nil
}
