package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            int64           `db:"id" json:"id"`
	TgID          int64           `db:"tg_id" json:"tg_id"`
	Username      string          `db:"username" json:"username"`
	FirstName     string          `db:"first_name" json:"first_name"`
	CSBalance     decimal.Decimal `db:"cs_balance" json:"cs_balance"`
	CHSTBalance   decimal.Decimal `db:"chst_balance" json:"chst_balance"`
	TotalHashrate int64           `db:"total_hashrate" json:"total_hashrate"`
	ReferralCode  string          `db:"referral_code" json:"referral_code"`
	ReferredBy    *int64          `db:"referred_by" json:"referred_by,omitempty"`
	IsAdmin       bool            `db:"is_admin" json:"is_admin"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Currencies
const (
	CurrencyCS   = "cs"
	CurrencyCHST = "chst"
)

// ValidCurrency reports whether c is a known balance currency.
func ValidCurrency(c string) bool {
	return c == CurrencyCS || c == CurrencyCHST
}
