package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PowerUpKind string

const (
	PowerUpHashrate PowerUpKind = "hashrate_boost"
	PowerUpLuck     PowerUpKind = "luck_boost"
)

func (k PowerUpKind) Valid() bool {
	return k == PowerUpHashrate || k == PowerUpLuck
}

// PowerUp is an activated, time-limited boost. It is active while
// ActivatedAt <= now < ExpiresAt.
type PowerUp struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Kind        PowerUpKind     `db:"kind" json:"kind"`
	BoostPct    decimal.Decimal `db:"boost_pct" json:"boost_pct"`
	ActivatedAt time.Time       `db:"activated_at" json:"activated_at"`
	ExpiresAt   time.Time       `db:"expires_at" json:"expires_at"`
}

// ActiveAt reports whether the power-up applies at instant t.
func (p PowerUp) ActiveAt(t time.Time) bool {
	return !t.Before(p.ActivatedAt) && t.Before(p.ExpiresAt)
}
