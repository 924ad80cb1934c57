package mining

import (
	"testing"
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func rig(hashrate int64, qty int) domain.OwnedEquipment {
	return domain.OwnedEquipment{CurrentHashrate: hashrate, Quantity: qty, UpgradeLevel: 1}
}

func boost(userID int64, kind domain.PowerUpKind, pct int64, from, to time.Time) domain.PowerUp {
	return domain.PowerUp{UserID: userID, Kind: kind, BoostPct: decimal.NewFromInt(pct), ActivatedAt: from, ExpiresAt: to}
}

func TestComputeEffectiveNoPowerUps(t *testing.T) {
	eff, err := ComputeEffective(1, []domain.OwnedEquipment{rig(40, 2), rig(20, 1)}, nil, t0)
	require.NoError(t, err)

	assert.Equal(t, int64(100), eff.BaseHashrate)
	assert.Equal(t, int64(100), eff.EffectiveHashrate)
	assert.True(t, eff.LuckMultiplier.Equal(decimal.NewFromInt(1)))
	assert.True(t, eff.HashrateBoostPct.IsZero())
}

func TestComputeEffectiveSingleBoost(t *testing.T) {
	ups := []domain.PowerUp{boost(1, domain.PowerUpHashrate, 50, t0.Add(-time.Minute), t0.Add(time.Hour))}
	eff, err := ComputeEffective(1, []domain.OwnedEquipment{rig(100, 1)}, ups, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(150), eff.EffectiveHashrate)
}

func TestComputeEffectiveBoostsAreAdditive(t *testing.T) {
	ups := []domain.PowerUp{
		boost(1, domain.PowerUpHashrate, 50, t0.Add(-time.Minute), t0.Add(time.Hour)),
		boost(1, domain.PowerUpHashrate, 30, t0.Add(-time.Minute), t0.Add(time.Hour)),
	}
	eff, err := ComputeEffective(1, []domain.OwnedEquipment{rig(100, 1)}, ups, t0)
	require.NoError(t, err)
	// x1.80, not 1.5 * 1.3 = x1.95
	assert.Equal(t, int64(180), eff.EffectiveHashrate)
	assert.True(t, eff.HashrateBoostPct.Equal(decimal.NewFromInt(80)))
}

func TestComputeEffectiveLuck(t *testing.T) {
	ups := []domain.PowerUp{
		boost(1, domain.PowerUpLuck, 20, t0.Add(-time.Minute), t0.Add(time.Hour)),
		boost(1, domain.PowerUpLuck, 5, t0.Add(-time.Minute), t0.Add(time.Hour)),
	}
	eff, err := ComputeEffective(1, []domain.OwnedEquipment{rig(100, 1)}, ups, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), eff.EffectiveHashrate)
	assert.Equal(t, "1.25", eff.LuckMultiplier.String())
}

func TestComputeEffectiveExpiryBoundaries(t *testing.T) {
	equipment := []domain.OwnedEquipment{rig(100, 1)}
	expired := boost(1, domain.PowerUpHashrate, 50, t0.Add(-time.Hour), t0)
	future := boost(1, domain.PowerUpHashrate, 50, t0.Add(time.Second), t0.Add(time.Hour))
	startsNow := boost(1, domain.PowerUpHashrate, 10, t0, t0.Add(time.Hour))
	otherUser := boost(2, domain.PowerUpHashrate, 90, t0.Add(-time.Hour), t0.Add(time.Hour))

	eff, err := ComputeEffective(1, equipment, []domain.PowerUp{expired, future, startsNow, otherUser}, t0)
	require.NoError(t, err)
	// expires_at == now is inactive, activated_at == now is active
	assert.Equal(t, int64(110), eff.EffectiveHashrate)
}

func TestComputeEffectiveFloors(t *testing.T) {
	ups := []domain.PowerUp{boost(1, domain.PowerUpHashrate, 33, t0.Add(-time.Minute), t0.Add(time.Hour))}
	eff, err := ComputeEffective(1, []domain.OwnedEquipment{rig(7, 1)}, ups, t0)
	require.NoError(t, err)
	// 7 * 1.33 = 9.31
	assert.Equal(t, int64(9), eff.EffectiveHashrate)
}

func TestComputeEffectiveRejectsNegative(t *testing.T) {
	_, err := ComputeEffective(1, []domain.OwnedEquipment{rig(-5, 1)}, nil, t0)
	assert.ErrorIs(t, err, ErrInvalidContribution)

	ups := []domain.PowerUp{boost(1, domain.PowerUpHashrate, -10, t0.Add(-time.Minute), t0.Add(time.Hour))}
	_, err = ComputeEffective(1, []domain.OwnedEquipment{rig(5, 1)}, ups, t0)
	assert.ErrorIs(t, err, ErrInvalidContribution)
}

func TestComputeEffectiveDeterministic(t *testing.T) {
	equipment := []domain.OwnedEquipment{rig(13, 3), rig(250, 2)}
	ups := []domain.PowerUp{
		boost(1, domain.PowerUpHashrate, 15, t0.Add(-time.Minute), t0.Add(time.Hour)),
		boost(1, domain.PowerUpLuck, 7, t0.Add(-time.Minute), t0.Add(time.Hour)),
	}
	first, err := ComputeEffective(1, equipment, ups, t0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ComputeEffective(1, equipment, ups, t0)
		require.NoError(t, err)
		assert.Equal(t, first.EffectiveHashrate, again.EffectiveHashrate)
		assert.True(t, first.LuckMultiplier.Equal(again.LuckMultiplier))
	}
}
