package entitlements

import (
	"testing"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/stretchr/testify/assert"
)

func TestEffective(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * 24 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		rec  *models.SubscriptionRecord
		want EffectiveTier
	}{
		{
			name: "nil record",
			rec:  nil,
			want: EffectiveTier{Tier: TierFree},
		},
		{
			name: "free record",
			rec:  models.NewFreeSubscriptionRecord(1),
			want: EffectiveTier{Tier: TierFree},
		},
		{
			name: "paid within period",
			rec:  &models.SubscriptionRecord{Tier: models.TierPaid, CurrentPeriodEnd: &future},
			want: EffectiveTier{Tier: TierPaid, IsActive: true, ExpiresAt: &future},
		},
		{
			name: "paid lapsed",
			rec:  &models.SubscriptionRecord{Tier: models.TierPaid, CurrentPeriodEnd: &past},
			want: EffectiveTier{Tier: TierPaid, IsActive: false, ExpiresAt: &past},
		},
		{
			name: "paid expiring this instant",
			rec:  &models.SubscriptionRecord{Tier: models.TierPaid, CurrentPeriodEnd: &now},
			want: EffectiveTier{Tier: TierPaid, IsActive: false, ExpiresAt: &now},
		},
		{
			name: "paid without period end",
			rec:  &models.SubscriptionRecord{Tier: models.TierPaid},
			want: EffectiveTier{Tier: TierPaid, IsActive: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Effective(tt.rec, now))
		})
	}
}
