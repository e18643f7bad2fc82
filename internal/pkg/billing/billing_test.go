package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository. Like the real one it hands out
// copies, so mutations only become visible through Upsert.
type fakeRepository struct {
	records     map[uint]*models.SubscriptionRecord
	events      map[string]*models.BillingWebhookEvent
	nextID      uint
	nextEventID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		records: make(map[uint]*models.SubscriptionRecord),
		events:  make(map[string]*models.BillingWebhookEvent),
	}
}

func cloneRecord(rec *models.SubscriptionRecord) *models.SubscriptionRecord {
	cp := *rec
	if rec.CurrentPeriodEnd != nil {
		t := *rec.CurrentPeriodEnd
		cp.CurrentPeriodEnd = &t
	}
	return &cp
}

func (f *fakeRepository) Get(userID uint) (*models.SubscriptionRecord, error) {
	rec, ok := f.records[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (f *fakeRepository) FindOrDefault(userID uint) (*models.SubscriptionRecord, error) {
	rec, err := f.Get(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewFreeSubscriptionRecord(userID), nil
	}
	return rec, err
}

func (f *fakeRepository) FindByCustomerID(customerID string) (*models.SubscriptionRecord, error) {
	for _, rec := range f.records {
		if customerID != "" && rec.ProviderCustomerID == customerID {
			return cloneRecord(rec), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindBySubscriptionID(subscriptionID string) (*models.SubscriptionRecord, error) {
	for _, rec := range f.records {
		if subscriptionID != "" && rec.ProviderSubscriptionID == subscriptionID {
			return cloneRecord(rec), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) Upsert(rec *models.SubscriptionRecord) error {
	if existing, ok := f.records[rec.UserID]; ok {
		rec.ID = existing.ID
	} else {
		f.nextID++
		rec.ID = f.nextID
	}
	f.records[rec.UserID] = cloneRecord(rec)
	return nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if stored, ok := f.events[event.ProviderEventID]; ok {
		cp := *stored
		return false, &cp, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	cp := *event
	f.events[event.ProviderEventID] = &cp
	out := cp
	return true, &out, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range f.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeProvider counts calls and serves canned remote state.
type fakeProvider struct {
	customerID string
	remote     map[string]*RemoteSubscription

	createCustomerCalls int
	checkoutCalls       int
	portalCalls         int
	cancelled           []string

	createCustomerErr error
	checkoutErr       error
	portalErr         error

	verifyEvent *Event
	verifyErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customerID: "cus_fake_1",
		remote:     make(map[string]*RemoteSubscription),
	}
}

func (f *fakeProvider) CreateCustomer(_ context.Context, _, _ string, _ uint) (string, error) {
	f.createCustomerCalls++
	if f.createCustomerErr != nil {
		return "", f.createCustomerErr
	}
	return f.customerID, nil
}

func (f *fakeProvider) GetSubscription(_ context.Context, subscriptionID string) (*RemoteSubscription, error) {
	remote, ok := f.remote[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", subscriptionID)
	}
	cp := *remote
	return &cp, nil
}

func (f *fakeProvider) NewCheckoutSession(_ context.Context, _ CheckoutParams) (string, error) {
	f.checkoutCalls++
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	return "https://billing.example.com/checkout/sess_1", nil
}

func (f *fakeProvider) NewPortalSession(_ context.Context, _, _ string) (string, error) {
	f.portalCalls++
	if f.portalErr != nil {
		return "", f.portalErr
	}
	return "https://billing.example.com/portal/ps_1", nil
}

func (f *fakeProvider) CancelSubscription(_ context.Context, subscriptionID string) error {
	f.cancelled = append(f.cancelled, subscriptionID)
	return nil
}

func (f *fakeProvider) VerifyWebhook(_ []byte, _ string) (*Event, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyEvent, nil
}

func testPlans() *PlanSet {
	return NewPlanSet(map[string]string{
		PlanMonthly: "price_monthly_1",
		PlanYearly:  "price_yearly_1",
	})
}

func testConfig() ServiceConfig {
	return ServiceConfig{
		SuccessURL:      "https://inkpress.test/membership?checkout=success",
		CancelURL:       "https://inkpress.test/membership?checkout=cancelled",
		PortalReturnURL: "https://inkpress.test/membership",
	}
}
