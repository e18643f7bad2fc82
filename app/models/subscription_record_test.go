package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFreeSubscriptionRecord(t *testing.T) {
	rec := NewFreeSubscriptionRecord(42)
	assert.Equal(t, uint(42), rec.UserID)
	assert.Equal(t, TierFree, rec.Tier)
	assert.Empty(t, rec.ProviderCustomerID)
	assert.Nil(t, rec.CurrentPeriodEnd)
}

func TestIsEntitlingStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{BillingStatusActive, true},
		{BillingStatusTrialing, true},
		{BillingStatusPastDue, false},
		{BillingStatusCanceled, false},
		{"unpaid", false},
		{"incomplete", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEntitlingStatus(tt.status), tt.status)
	}
}
