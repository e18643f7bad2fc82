package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/FabianGrimm/InkPress/app/models"
	"gorm.io/gorm"
)

// Reconciler applies verified provider events to the local subscription
// mirror. Every handler resolves its target record by a stable external
// identifier and writes the full resulting state in one upsert, so duplicate
// deliveries are no-ops and moderate reordering converges to the same row.
// Strict in-order delivery is neither assumed nor required.
//
// Any application error is reported to the caller as a handler failure; the
// provider's redelivery is the sole retry mechanism.
type Reconciler struct {
	repo     Repository
	provider Provider
}

// NewReconciler creates a webhook reconciler from injected dependencies.
func NewReconciler(repo Repository, provider Provider) *Reconciler {
	return &Reconciler{repo: repo, provider: provider}
}

// NewReconcilerFromDB creates a reconciler wired to Stripe and GORM.
func NewReconcilerFromDB(db *gorm.DB) *Reconciler {
	return NewReconciler(NewRepository(db), NewStripeClientFromEnv())
}

// Process verifies a raw webhook delivery and applies its state transition.
// Returns ErrInvalidSignature before any write when verification fails.
func (r *Reconciler) Process(ctx context.Context, payload []byte, signatureHeader string) error {
	ev, err := r.provider.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		return err
	}

	eventID := ev.ID
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}
	created, stored, err := r.repo.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
		ProviderEventID: eventID,
		EventType:       ev.ProviderType,
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return fmt.Errorf("persist webhook event: %w", err)
	}
	// Redeliveries of an already-applied event are acknowledged without
	// reprocessing; ones that previously failed run again.
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		return nil
	}

	applyErr := r.apply(ctx, ev)

	errMsg := ""
	if applyErr != nil {
		errMsg = applyErr.Error()
	}
	if err := r.repo.MarkWebhookProcessed(stored.ID, errMsg); err != nil {
		log.Printf("billing: failed to mark webhook %s processed: %v", eventID, err)
	}
	return applyErr
}

func (r *Reconciler) apply(ctx context.Context, ev *Event) error {
	switch ev.Kind {
	case EventCheckoutCompleted:
		return r.applyCheckoutCompleted(ctx, ev)
	case EventPaymentSucceeded:
		return r.applyPaymentSucceeded(ctx, ev)
	case EventPaymentFailed:
		// The provider owns retry/dunning; the stored period end keeps
		// gating access until an explicit cancellation arrives.
		log.Printf("billing: payment failed for subscription %s (customer %s)", ev.SubscriptionID, ev.CustomerID)
		return nil
	case EventSubscriptionUpdated:
		return r.applySubscriptionUpdated(ctx, ev)
	case EventSubscriptionDeleted:
		return r.applySubscriptionDeleted(ev)
	default:
		// Unrecognized kinds are acknowledged and ignored for forward
		// compatibility with provider event types not yet handled.
		log.Printf("billing: ignoring webhook event type %q", ev.ProviderType)
		return nil
	}
}

// applyCheckoutCompleted activates a subscription after the user finished a
// hosted checkout. The record is resolved by customer id, falling back to
// the user id carried in checkout metadata when no local link exists yet.
func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, ev *Event) error {
	rec, err := r.repo.FindByCustomerID(ev.CustomerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if ev.UserID == 0 {
			return fmt.Errorf("%w: checkout completed for customer %s", ErrRecordNotResolved, ev.CustomerID)
		}
		rec, err = r.repo.FindOrDefault(ev.UserID)
	}
	if err != nil {
		return err
	}

	remote, err := r.provider.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return providerErr(err)
	}

	rec.Tier = models.TierPaid
	rec.ProviderCustomerID = ev.CustomerID
	rec.ProviderSubscriptionID = remote.ID
	rec.ProviderPriceID = remote.PriceID
	rec.CurrentPeriodEnd = remote.CurrentPeriodEnd
	return r.repo.Upsert(rec)
}

// applyPaymentSucceeded refreshes price and period end after a renewal. No
// tier change: the record is already paid.
func (r *Reconciler) applyPaymentSucceeded(ctx context.Context, ev *Event) error {
	rec, err := r.repo.FindBySubscriptionID(ev.SubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: payment succeeded for subscription %s", ErrRecordNotResolved, ev.SubscriptionID)
	}
	if err != nil {
		return err
	}

	remote, err := r.provider.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return providerErr(err)
	}

	rec.ProviderPriceID = remote.PriceID
	rec.CurrentPeriodEnd = remote.CurrentPeriodEnd
	return r.repo.Upsert(rec)
}

// applySubscriptionUpdated recomputes tier from the provider-reported status
// and refreshes price and period end.
func (r *Reconciler) applySubscriptionUpdated(_ context.Context, ev *Event) error {
	rec, err := r.repo.FindBySubscriptionID(ev.SubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: subscription updated for %s", ErrRecordNotResolved, ev.SubscriptionID)
	}
	if err != nil {
		return err
	}

	if models.IsEntitlingStatus(ev.Status) {
		rec.Tier = models.TierPaid
	} else {
		rec.Tier = models.TierFree
	}
	if ev.PriceID != "" {
		rec.ProviderPriceID = ev.PriceID
	}
	if ev.PeriodEnd != nil {
		rec.CurrentPeriodEnd = ev.PeriodEnd
	}
	return r.repo.Upsert(rec)
}

// applySubscriptionDeleted handles terminal cancellation: the subscription
// link is cleared but the customer id is retained for reuse on the next
// checkout.
func (r *Reconciler) applySubscriptionDeleted(ev *Event) error {
	rec, err := r.repo.FindBySubscriptionID(ev.SubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: subscription deleted for %s", ErrRecordNotResolved, ev.SubscriptionID)
	}
	if err != nil {
		return err
	}

	rec.Tier = models.TierFree
	rec.ProviderSubscriptionID = ""
	rec.ProviderPriceID = ""
	rec.CurrentPeriodEnd = nil
	return r.repo.Upsert(rec)
}
