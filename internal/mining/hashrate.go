package mining

import (
	"errors"
	"fmt"
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	MaxUpgradeLevel = 10
	// прибавка к хешрейту за каждый уровень улучшения, в процентах
	UpgradeStepPct = 20

	difficultyScale = 1_000_000
)

var (
	ErrInvalidContribution = errors.New("invalid contribution")
	ErrInvalidLevel        = errors.New("invalid upgrade level")
)

var hundred = decimal.NewFromInt(100)

// UnitHashrate returns the per-unit hashrate of equipment with the given base
// hashrate at upgrade level (1 is the purchase level).
func UnitHashrate(base int64, level int) (int64, error) {
	if base < 0 {
		return 0, fmt.Errorf("%w: negative base hashrate %d", ErrInvalidContribution, base)
	}
	if level < 1 || level > MaxUpgradeLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	return base * int64(100+UpgradeStepPct*(level-1)) / 100, nil
}

// UpgradeCost is the price of moving one holding from level to level+1.
func UpgradeCost(basePrice decimal.Decimal, level int) (decimal.Decimal, error) {
	if level < 1 || level >= MaxUpgradeLevel {
		return decimal.Zero, fmt.Errorf("%w: cannot upgrade from %d", ErrInvalidLevel, level)
	}
	return basePrice.Mul(decimal.NewFromInt(int64(level))).Div(decimal.NewFromInt(2)).Round(4), nil
}

// BaseHashrate sums CurrentHashrate x Quantity over a user's equipment.
func BaseHashrate(equipment []domain.OwnedEquipment) (int64, error) {
	var total int64
	for _, e := range equipment {
		if e.CurrentHashrate < 0 || e.Quantity < 0 {
			return 0, fmt.Errorf("%w: equipment %d has hashrate %d, quantity %d",
				ErrInvalidContribution, e.ID, e.CurrentHashrate, e.Quantity)
		}
		total += e.CurrentHashrate * int64(e.Quantity)
	}
	return total, nil
}

// Difficulty is a display figure derived from the network hashrate and the
// block interval. It does not influence rewards.
func Difficulty(totalHashrate int64, interval time.Duration) int64 {
	d := totalHashrate * int64(interval/time.Second) / difficultyScale
	if d < 1 {
		return 1
	}
	return d
}
