package billing

import (
	"context"
	"time"
)

// EventKind is the normalized webhook event type. Provider implementations
// map their raw event names onto this closed set; anything else becomes
// EventUnknown and is acknowledged without effect.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout_completed"
	EventPaymentSucceeded    EventKind = "payment_succeeded"
	EventPaymentFailed       EventKind = "payment_failed"
	EventSubscriptionUpdated EventKind = "subscription_updated"
	EventSubscriptionDeleted EventKind = "subscription_deleted"
	EventUnknown             EventKind = "unknown"
)

// Event is a verified, normalized webhook notification. Not every field is
// set for every kind; each reconciler handler resolves the target record by
// whichever stable identifier its kind carries.
type Event struct {
	ID             string
	Kind           EventKind
	ProviderType   string // raw provider event name
	CustomerID     string
	SubscriptionID string
	PriceID        string
	Status         string
	PeriodEnd      *time.Time
	UserID         uint // recovered from checkout metadata, 0 if absent
	Raw            []byte
}

// RemoteSubscription is the provider's current view of a subscription.
type RemoteSubscription struct {
	ID               string
	Status           string
	PriceID          string
	CurrentPeriodEnd *time.Time
}

// CheckoutParams describes a new hosted checkout session.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     uint // carried as out-of-band metadata for the reconciler
	SuccessURL string
	CancelURL  string
}

// Provider is the boundary to the external billing system. The rest of the
// package depends only on this interface so tests can substitute a fake.
// Implementations are unreliable, latency-bearing remote dependencies and
// must honor ctx cancellation.
type Provider interface {
	// CreateCustomer creates a provider customer record for a user and
	// returns its id. Must be idempotent against retries for the same user.
	CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error)

	// GetSubscription fetches the current remote state of a subscription.
	GetSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error)

	// NewCheckoutSession creates a hosted payment flow and returns its URL.
	NewCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)

	// NewPortalSession creates a billing-management session for an existing
	// customer and returns its URL.
	NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	// CancelSubscription requests provider-side cancellation.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// VerifyWebhook checks the delivery signature and normalizes the
	// payload. Returns ErrInvalidSignature on verification failure.
	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}
