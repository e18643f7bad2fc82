package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/billing"
	"github.com/FabianGrimm/InkPress/internal/pkg/database"
	"github.com/FabianGrimm/InkPress/internal/pkg/entitlements"
	"github.com/FabianGrimm/InkPress/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

type checkoutRequest struct {
	PlanID string `json:"planId"`
}

// webhookProcessor is the slice of billing.Reconciler the webhook handler
// needs; tests substitute a stub.
type webhookProcessor interface {
	Process(ctx context.Context, payload []byte, signatureHeader string) error
}

var newWebhookProcessor = func() webhookProcessor {
	return billing.NewReconcilerFromDB(database.GetDB())
}

// HandleCheckout starts a payment flow for the requested plan and returns a
// single redirect URL: a new checkout session, or the billing portal when an
// active subscription already exists.
func HandleCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}

	var user models.User
	if err := database.GetDB().First(&user, userCtx.UserID).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "user_lookup_failed", "could not load user")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := svc.Checkout(ctx, &user, req.PlanID)
	switch {
	case errors.Is(err, billing.ErrInvalidPlan):
		return jsonError(c, fiber.StatusBadRequest, "invalid_plan", "unknown plan id")
	case errors.Is(err, billing.ErrProviderUnavailable):
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_unavailable", "billing provider unavailable, try again")
	case err != nil:
		return jsonError(c, fiber.StatusInternalServerError, "checkout_failed", "could not start checkout")
	}

	return c.JSON(fiber.Map{"redirectUrl": url})
}

// HandleBillingPortal returns a redirect URL to the provider-hosted
// self-service session for users with an existing billing relationship.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := svc.PortalURL(ctx, userCtx.UserID)
	switch {
	case errors.Is(err, billing.ErrNoBillingRelationship):
		return jsonError(c, fiber.StatusBadRequest, "no_billing_relationship", "no billing relationship exists yet")
	case errors.Is(err, billing.ErrProviderUnavailable):
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_unavailable", "billing provider unavailable, try again")
	case err != nil:
		return jsonError(c, fiber.StatusInternalServerError, "portal_failed", "could not open billing portal")
	}

	return c.JSON(fiber.Map{"redirectUrl": url})
}

// HandleBillingStatus reports the caller's effective tier.
func HandleBillingStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	tier, err := entitlements.ForUser(database.GetDB(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "status_failed", "could not load subscription state")
	}
	return c.JSON(tier)
}

// HandleStripeWebhook accepts signed provider events and applies them to the
// local subscription mirror. A non-2xx response asks the provider to
// redeliver; that redelivery is the only retry mechanism.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	reconciler := newWebhookProcessor()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := reconciler.Process(ctx, rawBody, signature)
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	case err != nil:
		return jsonError(c, fiber.StatusInternalServerError, "webhook_failed", "event could not be applied")
	}

	return c.JSON(fiber.Map{"ok": true})
}
