package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth     = "auth"
	AuditCategoryMining   = "mining"
	AuditCategoryPurchase = "purchase"
	AuditCategoryReferral = "referral"
	AuditCategoryPayment  = "payment"
	AuditCategoryAdmin    = "admin"
)

// ValidAuditCategory reports whether c is a known audit category.
func ValidAuditCategory(c string) bool {
	switch c {
	case AuditCategoryAuth, AuditCategoryMining, AuditCategoryPurchase,
		AuditCategoryReferral, AuditCategoryPayment, AuditCategoryAdmin:
		return true
	}
	return false
}

// Audit actions
const (
	AuditActionLogin = "login"

	AuditActionEquipmentBuy     = "equipment_buy"
	AuditActionEquipmentUpgrade = "equipment_upgrade"
	AuditActionPowerUpActivate  = "powerup_activate"

	AuditActionReferralApply = "referral_apply"
	AuditActionPaymentCredit = "payment_credit"

	AuditActionMiningPause  = "mining_pause"
	AuditActionMiningResume = "mining_resume"
	AuditActionMiningForce  = "mining_force"
	AuditActionAdminGrant   = "admin_grant"
)
