package billing

import (
	"context"
	"testing"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/entitlements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutCompletedEvent() *Event {
	return &Event{
		ID:             "evt_checkout_1",
		Kind:           EventCheckoutCompleted,
		ProviderType:   "checkout.session.completed",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		UserID:         7,
	}
}

func reconcilerWithRemote(t *testing.T, periodEnd time.Time) (*Reconciler, *fakeRepository, *fakeProvider) {
	t.Helper()
	repo := newFakeRepository()
	provider := newFakeProvider()
	provider.remote["sub_1"] = &RemoteSubscription{
		ID:               "sub_1",
		Status:           models.BillingStatusActive,
		PriceID:          "price_monthly_1",
		CurrentPeriodEnd: &periodEnd,
	}
	return NewReconciler(repo, provider), repo, provider
}

func TestCheckoutCompleted_ResolvesByUserMetadata(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, repo, _ := reconcilerWithRemote(t, periodEnd)

	// No record carries cus_1 yet; the user id from checkout metadata is
	// the only way back to the local user.
	require.NoError(t, r.apply(context.Background(), checkoutCompletedEvent()))

	rec, err := repo.Get(7)
	require.NoError(t, err)
	assert.Equal(t, models.TierPaid, rec.Tier)
	assert.Equal(t, "cus_1", rec.ProviderCustomerID)
	assert.Equal(t, "sub_1", rec.ProviderSubscriptionID)
	assert.Equal(t, "price_monthly_1", rec.ProviderPriceID)
	require.NotNil(t, rec.CurrentPeriodEnd)
	assert.True(t, rec.CurrentPeriodEnd.Equal(periodEnd))
}

func TestCheckoutCompleted_Idempotent(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, repo, _ := reconcilerWithRemote(t, periodEnd)

	ev := checkoutCompletedEvent()
	require.NoError(t, r.apply(context.Background(), ev))
	first, err := repo.Get(7)
	require.NoError(t, err)

	require.NoError(t, r.apply(context.Background(), ev))
	second, err := repo.Get(7)
	require.NoError(t, err)

	assert.Equal(t, first, second, "replaying the same event must be a no-op")
}

func TestCheckoutCompleted_UnresolvableWithoutMetadata(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, _, _ := reconcilerWithRemote(t, periodEnd)

	ev := checkoutCompletedEvent()
	ev.UserID = 0
	err := r.apply(context.Background(), ev)
	require.ErrorIs(t, err, ErrRecordNotResolved)
}

func TestPaymentSucceeded_RefreshesPeriodEnd(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, repo, provider := reconcilerWithRemote(t, periodEnd)
	require.NoError(t, r.apply(context.Background(), checkoutCompletedEvent()))

	// Renewal: the provider now reports the next period.
	nextPeriodEnd := periodEnd.Add(30 * 24 * time.Hour)
	provider.remote["sub_1"].CurrentPeriodEnd = &nextPeriodEnd

	require.NoError(t, r.apply(context.Background(), &Event{
		ID:             "evt_invoice_1",
		Kind:           EventPaymentSucceeded,
		ProviderType:   "invoice.payment_succeeded",
		SubscriptionID: "sub_1",
	}))

	rec, err := repo.Get(7)
	require.NoError(t, err)
	assert.Equal(t, models.TierPaid, rec.Tier)
	assert.True(t, rec.CurrentPeriodEnd.Equal(nextPeriodEnd))
}

func TestPaymentSucceeded_UnknownSubscription(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, _, _ := reconcilerWithRemote(t, periodEnd)

	err := r.apply(context.Background(), &Event{
		Kind:           EventPaymentSucceeded,
		SubscriptionID: "sub_never_seen",
	})
	require.ErrorIs(t, err, ErrRecordNotResolved)
}

func TestPaymentFailed_NoMutation(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, repo, _ := reconcilerWithRemote(t, periodEnd)
	require.NoError(t, r.apply(context.Background(), checkoutCompletedEvent()))
	before, err := repo.Get(7)
	require.NoError(t, err)

	require.NoError(t, r.apply(context.Background(), &Event{
		ID:             "evt_invoice_fail_1",
		Kind:           EventPaymentFailed,
		ProviderType:   "invoice.payment_failed",
		SubscriptionID: "sub_1",
	}))

	after, err := repo.Get(7)
	require.NoError(t, err)
	assert.Equal(t, before, after, "grace: failed renewal must not change tier or period end")
}

func TestSubscriptionUpdated_RecomputesTier(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, repo, _ := reconcilerWithRemote(t, periodEnd)
	require.NoError(t, r.apply(context.Background(), checkoutCompletedEvent()))

	require.NoError(t, r.apply(context.Background(), &Event{
		Kind:           EventSubscriptionUpdated,
		SubscriptionID: "sub_1",
		Status:         models.BillingStatusCanceled,
		PriceID:        "price_monthly_1",
		PeriodEnd:      &periodEnd,
	}))

	rec, err := repo.Get(7)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, rec.Tier)
	assert.Equal(t, "sub_1", rec.ProviderSubscriptionID, "updated is not terminal; the link stays")
}

func TestOutOfOrder_RenewalConverges(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	renewalEnd := periodEnd.Add(30 * 24 * time.Hour)

	updated := &Event{
		Kind:           EventSubscriptionUpdated,
		SubscriptionID: "sub_1",
		Status:         models.BillingStatusActive,
		PriceID:        "price_monthly_1",
		PeriodEnd:      &renewalEnd,
	}
	paid := &Event{
		Kind:           EventPaymentSucceeded,
		SubscriptionID: "sub_1",
	}

	for name, order := range map[string][2]*Event{
		"updated-then-paid": {updated, paid},
		"paid-then-updated": {paid, updated},
	} {
		r, repo, provider := reconcilerWithRemote(t, periodEnd)
		require.NoError(t, r.apply(context.Background(), checkoutCompletedEvent()))
		provider.remote["sub_1"].CurrentPeriodEnd = &renewalEnd

		require.NoError(t, r.apply(context.Background(), order[0]), name)
		require.NoError(t, r.apply(context.Background(), order[1]), name)

		rec, err := repo.Get(7)
		require.NoError(t, err)
		assert.Equal(t, models.TierPaid, rec.Tier, name)
		assert.True(t, rec.CurrentPeriodEnd.Equal(renewalEnd), name)
	}
}

func TestSubscriptionDeleted_Terminal(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	r, repo, _ := reconcilerWithRemote(t, periodEnd)
	require.NoError(t, r.apply(context.Background(), checkoutCompletedEvent()))

	require.NoError(t, r.apply(context.Background(), &Event{
		Kind:           EventSubscriptionDeleted,
		SubscriptionID: "sub_1",
	}))

	rec, err := repo.Get(7)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, rec.Tier)
	assert.Empty(t, rec.ProviderSubscriptionID)
	assert.Empty(t, rec.ProviderPriceID)
	assert.Nil(t, rec.CurrentPeriodEnd)
	assert.Equal(t, "cus_1", rec.ProviderCustomerID, "customer id survives terminal cancellation")
}

func TestProcess_InvalidSignature(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	provider.verifyErr = ErrInvalidSignature
	r := NewReconciler(repo, provider)

	err := r.Process(context.Background(), []byte(`{}`), "bad")
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, repo.events, "a rejected delivery must not be recorded")
}

func TestProcess_UnknownKindAcknowledged(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	provider.verifyEvent = &Event{
		ID:           "evt_unknown_1",
		Kind:         EventUnknown,
		ProviderType: "customer.tax_id.created",
	}
	r := NewReconciler(repo, provider)

	require.NoError(t, r.Process(context.Background(), []byte(`{}`), "sig"))
	require.Len(t, repo.events, 1)
	assert.NotNil(t, repo.events["evt_unknown_1"].ProcessedAt)
}

func TestProcess_DuplicateDeliveryAcknowledged(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	repo := newFakeRepository()
	provider := newFakeProvider()
	provider.remote["sub_1"] = &RemoteSubscription{
		ID:               "sub_1",
		Status:           models.BillingStatusActive,
		PriceID:          "price_monthly_1",
		CurrentPeriodEnd: &periodEnd,
	}
	provider.verifyEvent = checkoutCompletedEvent()
	r := NewReconciler(repo, provider)

	require.NoError(t, r.Process(context.Background(), []byte(`{}`), "sig"))
	require.NoError(t, r.Process(context.Background(), []byte(`{}`), "sig"))

	rec, err := repo.Get(7)
	require.NoError(t, err)
	assert.Equal(t, models.TierPaid, rec.Tier)
	require.Len(t, repo.events, 1)
}

// Full lifecycle: checkout, activation via webhook, terminal cancellation,
// observed through the entitlements read contract.
func TestLifecycle_EffectiveTier(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	repo := newFakeRepository()
	provider := newFakeProvider()
	provider.remote["sub_1"] = &RemoteSubscription{
		ID:               "sub_1",
		Status:           models.BillingStatusActive,
		PriceID:          "price_monthly_1",
		CurrentPeriodEnd: &periodEnd,
	}
	svc := NewService(repo, provider, testPlans(), testConfig())
	r := NewReconciler(repo, provider)

	_, err := svc.Checkout(context.Background(), testUser(), PlanMonthly)
	require.NoError(t, err)

	rec, err := repo.FindOrDefault(7)
	require.NoError(t, err)
	assert.False(t, entitlements.Effective(rec, time.Now()).IsActive, "payment not completed yet")

	require.NoError(t, r.apply(context.Background(), &Event{
		ID:             "evt_checkout_1",
		Kind:           EventCheckoutCompleted,
		CustomerID:     "cus_fake_1",
		SubscriptionID: "sub_1",
		UserID:         7,
	}))

	rec, err = repo.Get(7)
	require.NoError(t, err)
	eff := entitlements.Effective(rec, time.Now())
	assert.Equal(t, entitlements.TierPaid, eff.Tier)
	assert.True(t, eff.IsActive)
	require.NotNil(t, eff.ExpiresAt)
	assert.True(t, eff.ExpiresAt.Equal(periodEnd))

	require.NoError(t, r.apply(context.Background(), &Event{
		Kind:           EventSubscriptionDeleted,
		SubscriptionID: "sub_1",
	}))

	rec, err = repo.Get(7)
	require.NoError(t, err)
	eff = entitlements.Effective(rec, time.Now())
	assert.Equal(t, entitlements.TierFree, eff.Tier)
	assert.False(t, eff.IsActive)
	assert.Nil(t, eff.ExpiresAt)
}
