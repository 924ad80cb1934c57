package mining

import (
	"fmt"
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
)

// Effective is a user's mining power at one instant.
type Effective struct {
	UserID            int64           `json:"user_id"`
	BaseHashrate      int64           `json:"base_hashrate"`
	EffectiveHashrate int64           `json:"effective_hashrate"`
	HashrateBoostPct  decimal.Decimal `json:"hashrate_boost_pct"`
	LuckBoostPct      decimal.Decimal `json:"luck_boost_pct"`
	LuckMultiplier    decimal.Decimal `json:"luck_multiplier"`
}

// ActivePowerUps returns the user's power-ups active at now, in input order.
func ActivePowerUps(userID int64, powerUps []domain.PowerUp, now time.Time) []domain.PowerUp {
	var out []domain.PowerUp
	for _, p := range powerUps {
		if p.UserID == userID && p.ActiveAt(now) {
			out = append(out, p)
		}
	}
	return out
}

// ComputeEffective applies the user's active power-ups to the raw equipment
// hashrate. Boosts of one kind add up and are never compounded.
func ComputeEffective(userID int64, equipment []domain.OwnedEquipment, powerUps []domain.PowerUp, now time.Time) (Effective, error) {
	base, err := BaseHashrate(equipment)
	if err != nil {
		return Effective{}, err
	}

	hashPct := decimal.Zero
	luckPct := decimal.Zero
	for _, p := range ActivePowerUps(userID, powerUps, now) {
		if p.BoostPct.IsNegative() {
			return Effective{}, fmt.Errorf("%w: power-up %d has negative boost %s",
				ErrInvalidContribution, p.ID, p.BoostPct)
		}
		switch p.Kind {
		case domain.PowerUpHashrate:
			hashPct = hashPct.Add(p.BoostPct)
		case domain.PowerUpLuck:
			luckPct = luckPct.Add(p.BoostPct)
		}
	}

	// floor(base * (100 + pct) / 100)
	scaled, _ := decimal.NewFromInt(base).Mul(hundred.Add(hashPct)).QuoRem(hundred, 0)

	return Effective{
		UserID:            userID,
		BaseHashrate:      base,
		EffectiveHashrate: scaled.IntPart(),
		HashrateBoostPct:  hashPct,
		LuckBoostPct:      luckPct,
		LuckMultiplier:    decimal.NewFromInt(1).Add(luckPct.Shift(-2)),
	}, nil
}
