package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Block is one mining epoch. Reward is the configured pool, Distributed
// is what was actually credited after floor rounding.
type Block struct {
	ID            int64     `db:"id" json:"id"`
	Number        int64     `db:"number" json:"number"`
	MinedAt       time.Time `db:"mined_at" json:"mined_at"`
	Reward        int64     `db:"reward" json:"reward"`
	Distributed   int64     `db:"distributed" json:"distributed"`
	TotalHashrate int64     `db:"total_hashrate" json:"total_hashrate"`
	ActiveMiners  int       `db:"active_miners" json:"active_miners"`
	Difficulty    int64     `db:"difficulty" json:"difficulty"`
}

type BlockReward struct {
	ID          int64           `db:"id" json:"id"`
	BlockID     int64           `db:"block_id" json:"block_id"`
	BlockNumber int64           `db:"block_number" json:"block_number"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Hashrate    int64           `db:"hashrate" json:"hashrate"`
	SharePct    decimal.Decimal `db:"share_pct" json:"share_pct"`
	Reward      int64           `db:"reward" json:"reward"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
