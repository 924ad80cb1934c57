package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a confirmed external payment credited to a balance exactly once.
type Payment struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	TxHash    string          `db:"tx_hash" json:"tx_hash"`
	Currency  string          `db:"currency" json:"currency"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
