package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Currency  string                 `db:"currency" json:"currency"`
	Amount    decimal.Decimal        `db:"amount" json:"amount"`
	Meta      map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Transaction types
const (
	TxMiningReward     = "mining_reward"
	TxEquipmentBuy     = "equipment_buy"
	TxEquipmentUpgrade = "equipment_upgrade"
	TxPowerUpBuy       = "powerup_buy"
	TxReferralBonus    = "referral_bonus"
	TxPayment          = "payment"
	TxAdminGrant       = "admin_grant"
)
