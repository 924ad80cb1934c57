package mining

import (
	"testing"
	"time"

	"hardmine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	miners := []domain.MinerState{
		{UserID: 1, Equipment: []domain.OwnedEquipment{rig(100, 1)}},
		{UserID: 2, Equipment: []domain.OwnedEquipment{rig(50, 4)}},
		{UserID: 3},
		{UserID: 4, Equipment: []domain.OwnedEquipment{rig(-1, 1)}},
	}
	ups := []domain.PowerUp{boost(1, domain.PowerUpHashrate, 50, t0.Add(-time.Minute), t0.Add(time.Minute))}

	snap := Snapshot(miners, ups, t0)
	assert.Equal(t, int64(350), snap.TotalHashrate)
	assert.Equal(t, 2, snap.ActiveMiners)
	assert.Equal(t, t0, snap.At)

	// the boost has expired two minutes later
	later := Snapshot(miners, ups, t0.Add(2*time.Minute))
	assert.Equal(t, int64(300), later.TotalHashrate)
}

func TestComposeAllReportsRejections(t *testing.T) {
	miners := []domain.MinerState{
		{UserID: 1, Equipment: []domain.OwnedEquipment{rig(10, 1)}},
		{UserID: 2, Equipment: []domain.OwnedEquipment{rig(10, -1)}},
	}
	effs, rejected := ComposeAll(miners, nil, t0)
	require.Len(t, effs, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, int64(2), rejected[0].UserID)
}

func TestUnitHashrateAndUpgradeCost(t *testing.T) {
	h, err := UnitHashrate(100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), h)

	h, err = UnitHashrate(100, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(200), h)

	_, err = UnitHashrate(100, 0)
	assert.ErrorIs(t, err, ErrInvalidLevel)
	_, err = UnitHashrate(100, MaxUpgradeLevel+1)
	assert.ErrorIs(t, err, ErrInvalidLevel)

	equipment := domain.EquipmentType{BasePrice: decimalFromInt(1000)}
	cost, err := UpgradeCost(equipment.BasePrice, 3)
	require.NoError(t, err)
	assert.Equal(t, "1500", cost.String())

	_, err = UpgradeCost(equipment.BasePrice, MaxUpgradeLevel)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestDifficultyFloor(t *testing.T) {
	assert.Equal(t, int64(1), Difficulty(0, 5*time.Minute))
	assert.Equal(t, int64(30), Difficulty(100000, 5*time.Minute))
}
