package service

import (
	"testing"

	"hardmine/internal/domain"
	"hardmine/internal/mining"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gpu() *domain.EquipmentType {
	return &domain.EquipmentType{ID: 3, Code: "gpu", BaseHashrate: 50, BasePrice: decimal.NewFromInt(2000), Currency: domain.CurrencyCS, MaxOwned: 2}
}

func TestPlanPurchase(t *testing.T) {
	owned, cost, err := planPurchase(gpu(), domain.OwnedEquipment{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, owned.Quantity)
	assert.Equal(t, 1, owned.UpgradeLevel)
	assert.Equal(t, int64(50), owned.CurrentHashrate)
	assert.Equal(t, int64(3), owned.EquipmentTypeID)
	assert.Equal(t, "2000", cost.String())

	owned, _, err = planPurchase(gpu(), owned)
	require.NoError(t, err)
	assert.Equal(t, 2, owned.Quantity)

	_, _, err = planPurchase(gpu(), owned)
	assert.ErrorIs(t, err, ErrMaxOwned)
}

func TestPlanPurchaseKeepsUpgradeLevel(t *testing.T) {
	et := gpu()
	et.MaxOwned = 0
	owned, _, err := planPurchase(et, domain.OwnedEquipment{Quantity: 3, UpgradeLevel: 3, CurrentHashrate: 70})
	require.NoError(t, err)
	assert.Equal(t, 4, owned.Quantity)
	assert.Equal(t, int64(70), owned.CurrentHashrate)
}

func TestPlanUpgrade(t *testing.T) {
	owned, cost, err := planUpgrade(gpu(), domain.OwnedEquipment{Quantity: 2, UpgradeLevel: 1, CurrentHashrate: 50})
	require.NoError(t, err)
	assert.Equal(t, 2, owned.UpgradeLevel)
	assert.Equal(t, int64(60), owned.CurrentHashrate)
	// 2000 * 1 / 2 per unit, two units
	assert.Equal(t, "2000", cost.String())

	_, _, err = planUpgrade(gpu(), domain.OwnedEquipment{Quantity: 0, UpgradeLevel: 1})
	assert.ErrorIs(t, err, ErrNotOwned)

	_, _, err = planUpgrade(gpu(), domain.OwnedEquipment{Quantity: 1, UpgradeLevel: mining.MaxUpgradeLevel})
	assert.ErrorIs(t, err, ErrMaxLevel)
}
