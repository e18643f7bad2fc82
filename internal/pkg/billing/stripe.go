package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/FabianGrimm/InkPress/internal/pkg/env"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/client"
	"github.com/stripe/stripe-go/v83/webhook"
)

const metadataUserIDKey = "user_id"

// StripeClient implements Provider against the Stripe API.
type StripeClient struct {
	api           *client.API
	webhookSecret string
}

// NewStripeClient creates a Stripe-backed provider client.
func NewStripeClient(apiKey, webhookSecret string) *StripeClient {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeClient{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// NewStripeClientFromEnv creates a Stripe client from environment configuration.
func NewStripeClientFromEnv() *StripeClient {
	return NewStripeClient(
		env.GetEnv("STRIPE_SECRET_KEY", ""),
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email, name string, userID uint) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{
			Context: ctx,
			// Stripe dedupes retried creations carrying the same key, so a
			// lost response cannot produce a second customer for the user.
			IdempotencyKey: stripe.String(fmt.Sprintf("inkpress-customer-%d", userID)),
		},
		Email: stripe.String(email),
		Name:  stripe.String(name),
		Metadata: map[string]string{
			metadataUserIDKey: strconv.FormatUint(uint64(userID), 10),
		},
	}
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error) {
	sub, err := c.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}

	remote := &RemoteSubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			remote.PriceID = item.Price.ID
		}
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			remote.CurrentPeriodEnd = &t
		}
	}
	return remote, nil
}

func (c *StripeClient) NewCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	userID := strconv.FormatUint(uint64(p.UserID), 10)
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(userID),
		Metadata: map[string]string{
			metadataUserIDKey: userID,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataUserIDKey: userID,
			},
		},
	}
	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (c *StripeClient) NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

func (c *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := c.api.Subscriptions.Cancel(subscriptionID, &stripe.SubscriptionCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// VerifyWebhook validates the Stripe-Signature header and normalizes the
// event payload into the closed EventKind set. The API version check is
// disabled: deliveries carry the account's pinned version, not the SDK's,
// and a mismatch is not an authenticity failure.
func (c *StripeClient) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return normalizeStripeEvent(&stripeEvent)
}

// Webhook payload objects are decoded through local structs rather than the
// SDK's typed structs: the SDK tracks the newest Stripe API version while
// webhook payloads follow the account's pinned version, and the fields we
// read are stable across both.
type stripeCheckoutSessionPayload struct {
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type stripeInvoicePayload struct {
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

type stripeSubscriptionPayload struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func normalizeStripeEvent(stripeEvent *stripe.Event) (*Event, error) {
	ev := &Event{
		ID:           stripeEvent.ID,
		Kind:         EventUnknown,
		ProviderType: string(stripeEvent.Type),
	}
	if stripeEvent.Data != nil {
		ev.Raw = stripeEvent.Data.Raw
	}

	switch stripeEvent.Type {
	case "checkout.session.completed":
		var sess stripeCheckoutSessionPayload
		if err := json.Unmarshal(ev.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session payload: %w", err)
		}
		// Payment-mode checkouts carry no subscription and stay unknown.
		if sess.Mode != "subscription" {
			return ev, nil
		}
		ev.Kind = EventCheckoutCompleted
		ev.CustomerID = sess.Customer
		ev.SubscriptionID = sess.Subscription
		ev.UserID = userIDFromMetadata(sess.Metadata, sess.ClientReferenceID)

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripeInvoicePayload
		if err := json.Unmarshal(ev.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice payload: %w", err)
		}
		if stripeEvent.Type == "invoice.payment_succeeded" {
			ev.Kind = EventPaymentSucceeded
		} else {
			ev.Kind = EventPaymentFailed
		}
		ev.CustomerID = inv.Customer
		ev.SubscriptionID = inv.Subscription
		if ev.SubscriptionID == "" {
			ev.SubscriptionID = inv.Parent.SubscriptionDetails.Subscription
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripeSubscriptionPayload
		if err := json.Unmarshal(ev.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription payload: %w", err)
		}
		if stripeEvent.Type == "customer.subscription.updated" {
			ev.Kind = EventSubscriptionUpdated
		} else {
			ev.Kind = EventSubscriptionDeleted
		}
		ev.CustomerID = sub.Customer
		ev.SubscriptionID = sub.ID
		ev.Status = sub.Status
		ev.UserID = userIDFromMetadata(sub.Metadata, "")
		periodEnd := sub.CurrentPeriodEnd
		if len(sub.Items.Data) > 0 {
			ev.PriceID = sub.Items.Data[0].Price.ID
			if sub.Items.Data[0].CurrentPeriodEnd > 0 {
				periodEnd = sub.Items.Data[0].CurrentPeriodEnd
			}
		}
		if periodEnd > 0 {
			t := time.Unix(periodEnd, 0).UTC()
			ev.PeriodEnd = &t
		}
	}

	return ev, nil
}

func userIDFromMetadata(metadata map[string]string, clientReferenceID string) uint {
	raw := metadata[metadataUserIDKey]
	if raw == "" {
		raw = clientReferenceID
	}
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
