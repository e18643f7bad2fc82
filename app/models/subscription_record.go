package models

import "time"

const (
	TierFree = "free"
	TierPaid = "paid"
)

// Remote subscription statuses reported by the billing provider.
const (
	BillingStatusActive   = "active"
	BillingStatusTrialing = "trialing"
	BillingStatusPastDue  = "past_due"
	BillingStatusCanceled = "canceled"
)

// SubscriptionRecord mirrors a user's billing state as reported by the
// payment provider. The provider is the source of truth for payment status;
// this record is the source of truth for the app's access checks. One record
// per user, written only by the billing package.
//
// Tier alone is not sufficient to grant access: a paid tier is only
// meaningful while CurrentPeriodEnd is in the future. Readers must go
// through entitlements.Effective, never through Tier directly.
type SubscriptionRecord struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Tier                   string     `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);not null;default:'';index" json:"provider_customer_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;default:'';index" json:"provider_subscription_id"`
	ProviderPriceID        string     `gorm:"type:varchar(191);not null;default:''" json:"provider_price_id"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewFreeSubscriptionRecord returns the default record a user starts with
// before any billing interaction.
func NewFreeSubscriptionRecord(userID uint) *SubscriptionRecord {
	return &SubscriptionRecord{
		UserID: userID,
		Tier:   TierFree,
	}
}

// IsEntitlingStatus reports whether a provider-reported subscription status
// grants paid access.
func IsEntitlingStatus(status string) bool {
	switch status {
	case BillingStatusActive, BillingStatusTrialing:
		return true
	default:
		return false
	}
}
