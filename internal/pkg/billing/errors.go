package billing

import "errors"

var (
	// ErrInvalidPlan is returned when a checkout references a plan id the
	// provider does not recognize.
	ErrInvalidPlan = errors.New("billing: unknown plan id")

	// ErrInvalidSignature is returned when a webhook delivery fails
	// signature verification. No state is mutated in that case.
	ErrInvalidSignature = errors.New("billing: webhook signature verification failed")

	// ErrProviderUnavailable wraps transient failures of the billing
	// provider API. Callers may retry; the billing package never does.
	ErrProviderUnavailable = errors.New("billing: provider unavailable")

	// ErrRecordNotResolved is returned when a webhook references a
	// customer or subscription id with no local record. Reported as a
	// handler failure so the provider redelivers.
	ErrRecordNotResolved = errors.New("billing: no local record for provider identifier")

	// ErrNoBillingRelationship is returned when a portal session is
	// requested for a user who never went through checkout.
	ErrNoBillingRelationship = errors.New("billing: user has no billing relationship")
)
