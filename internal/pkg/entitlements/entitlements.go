package entitlements

import (
	"errors"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"gorm.io/gorm"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// EffectiveTier is the read contract consumed by access checks.
// IsActive is the only field that grants anything: a paid tier whose period
// end has lapsed is not active. Expiry is evaluated lazily on read; there is
// no background sweep flipping tiers, so never consult Tier alone.
type EffectiveTier struct {
	Tier      Tier       `json:"tier"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Effective computes the access level granted by a subscription record at a
// given instant.
func Effective(rec *models.SubscriptionRecord, now time.Time) EffectiveTier {
	if rec == nil || rec.Tier != models.TierPaid {
		return EffectiveTier{Tier: TierFree}
	}
	if rec.CurrentPeriodEnd == nil || !rec.CurrentPeriodEnd.After(now) {
		return EffectiveTier{Tier: TierPaid, IsActive: false, ExpiresAt: rec.CurrentPeriodEnd}
	}
	return EffectiveTier{Tier: TierPaid, IsActive: true, ExpiresAt: rec.CurrentPeriodEnd}
}

// ForUser resolves the effective tier for a user, defaulting to FREE when no
// subscription record exists yet.
func ForUser(db *gorm.DB, userID uint) (EffectiveTier, error) {
	var rec models.SubscriptionRecord
	err := db.Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EffectiveTier{Tier: TierFree}, nil
	}
	if err != nil {
		return EffectiveTier{Tier: TierFree}, err
	}
	return Effective(&rec, time.Now()), nil
}
