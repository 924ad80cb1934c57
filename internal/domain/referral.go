package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Referral struct {
	ID          int64           `db:"id" json:"id"`
	ReferrerID  int64           `db:"referrer_id" json:"referrer_id"`
	RefereeID   int64           `db:"referee_id" json:"referee_id"`
	BonusEarned decimal.Decimal `db:"bonus_earned" json:"bonus_earned"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
