package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/env"
	"gorm.io/gorm"
)

// ServiceConfig holds the redirect targets handed to the provider's hosted
// flows.
type ServiceConfig struct {
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

// Service orchestrates the checkout path: customer creation-or-reuse and the
// checkout-vs-portal decision. It never mutates tier; only the Reconciler
// advances billing state from provider events.
type Service struct {
	repo     Repository
	provider Provider
	plans    *PlanSet
	cfg      ServiceConfig
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, provider Provider, plans *PlanSet, cfg ServiceConfig) *Service {
	return &Service{repo: repo, provider: provider, plans: plans, cfg: cfg}
}

// NewServiceFromDB creates a billing service wired to Stripe and environment
// configuration.
func NewServiceFromDB(db *gorm.DB) *Service {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	return NewService(
		NewRepository(db),
		NewStripeClientFromEnv(),
		NewPlanSetFromEnv(),
		ServiceConfig{
			SuccessURL:      base + "/membership?checkout=success",
			CancelURL:       base + "/membership?checkout=cancelled",
			PortalReturnURL: base + "/membership",
		},
	)
}

// Checkout returns a single redirect URL for a user initiating payment:
// either a new hosted checkout for the requested plan, or a
// billing-management session when an active subscription already exists.
func (s *Service) Checkout(ctx context.Context, user *models.User, planID string) (string, error) {
	priceID, ok := s.plans.PriceID(planID)
	if !ok {
		return "", ErrInvalidPlan
	}

	rec, err := s.ensureRecord(user.ID)
	if err != nil {
		return "", err
	}

	// Customer records are reused across subscription lifecycles; once the
	// id is set it is never cleared, so retries cannot create a duplicate
	// billing identity.
	if rec.ProviderCustomerID == "" {
		customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.Name, user.ID)
		if err != nil {
			return "", providerErr(err)
		}
		rec.ProviderCustomerID = customerID
		if err := s.repo.Upsert(rec); err != nil {
			return "", err
		}
	}

	// A user must never hold two concurrent active subscriptions. When the
	// remote subscription is still live, route into the portal instead of a
	// second checkout.
	if rec.ProviderSubscriptionID != "" {
		remote, err := s.provider.GetSubscription(ctx, rec.ProviderSubscriptionID)
		if err != nil {
			return "", providerErr(err)
		}
		if models.IsEntitlingStatus(remote.Status) {
			url, err := s.provider.NewPortalSession(ctx, rec.ProviderCustomerID, s.cfg.PortalReturnURL)
			if err != nil {
				return "", providerErr(err)
			}
			return url, nil
		}
	}

	url, err := s.provider.NewCheckoutSession(ctx, CheckoutParams{
		CustomerID: rec.ProviderCustomerID,
		PriceID:    priceID,
		UserID:     user.ID,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		return "", providerErr(err)
	}
	return url, nil
}

// PortalURL returns a billing-management session URL for a user with an
// existing billing relationship.
func (s *Service) PortalURL(ctx context.Context, userID uint) (string, error) {
	rec, err := s.repo.Get(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoBillingRelationship
	}
	if err != nil {
		return "", err
	}
	if rec.ProviderCustomerID == "" {
		return "", ErrNoBillingRelationship
	}

	url, err := s.provider.NewPortalSession(ctx, rec.ProviderCustomerID, s.cfg.PortalReturnURL)
	if err != nil {
		return "", providerErr(err)
	}
	return url, nil
}

// CancelForUser requests provider-side cancellation of the user's
// subscription, if any. Used by account deletion; callers treat failures as
// best-effort and must not block on them.
func (s *Service) CancelForUser(ctx context.Context, userID uint) error {
	rec, err := s.repo.Get(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.ProviderSubscriptionID == "" {
		return nil
	}
	if err := s.provider.CancelSubscription(ctx, rec.ProviderSubscriptionID); err != nil {
		return providerErr(err)
	}
	return nil
}

// ensureRecord guarantees every user has exactly one subscription record
// before any billing interaction.
func (s *Service) ensureRecord(userID uint) (*models.SubscriptionRecord, error) {
	rec, err := s.repo.Get(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.NewFreeSubscriptionRecord(userID)
		if err := s.repo.Upsert(rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func providerErr(err error) error {
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
