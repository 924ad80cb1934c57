package service

import (
	"context"
	"testing"
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkSnapshot(t *testing.T) {
	store := newMemStore()
	store.miners = []domain.MinerState{miner(1, 100), miner(2, 250), {UserID: 3}}
	store.powerUps = []domain.PowerUp{{
		UserID: 2, Kind: domain.PowerUpHashrate, BoostPct: decimal.NewFromInt(20),
		ActivatedAt: epoch.Add(-time.Minute), ExpiresAt: epoch.Add(time.Minute),
	}}

	svc := NewNetworkService(store, nil)
	snap, err := svc.Snapshot(context.Background(), epoch)
	require.NoError(t, err)
	assert.Equal(t, int64(400), snap.TotalHashrate)
	assert.Equal(t, 2, snap.ActiveMiners)

	// without Redis the cached path computes live
	cached, err := svc.Cached(context.Background(), epoch.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(350), cached.TotalHashrate)
}
