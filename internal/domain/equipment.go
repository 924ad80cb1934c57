package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquipmentType is a catalog entry a user can buy.
type EquipmentType struct {
	ID           int64           `db:"id" json:"id"`
	Code         string          `db:"code" json:"code"`
	Name         string          `db:"name" json:"name"`
	Tier         int             `db:"tier" json:"tier"`
	Category     string          `db:"category" json:"category"`
	BaseHashrate int64           `db:"base_hashrate" json:"base_hashrate"`
	BasePrice    decimal.Decimal `db:"base_price" json:"base_price"`
	Currency     string          `db:"currency" json:"currency"`
	MaxOwned     int             `db:"max_owned" json:"max_owned"`
	SortOrder    int             `db:"sort_order" json:"sort_order"`
}

// OwnedEquipment is a user's holding of one equipment type.
// CurrentHashrate is the per-unit hashrate at the current upgrade level.
type OwnedEquipment struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	EquipmentTypeID int64     `db:"equipment_type_id" json:"equipment_type_id"`
	Quantity        int       `db:"quantity" json:"quantity"`
	UpgradeLevel    int       `db:"upgrade_level" json:"upgrade_level"`
	CurrentHashrate int64     `db:"current_hashrate" json:"current_hashrate"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Equipment categories
const (
	CategoryMiner   = "miner"
	CategoryCooling = "cooling"
	CategoryPower   = "power"
)

// MinerState is a user's equipment loaded for a mining tick.
type MinerState struct {
	UserID    int64
	Equipment []OwnedEquipment
}
