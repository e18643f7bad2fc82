package billing

import (
	"strings"

	"github.com/FabianGrimm/InkPress/internal/pkg/env"
)

// Public plan ids accepted by the checkout endpoint.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// PlanSet maps public plan ids to provider price ids.
type PlanSet struct {
	prices map[string]string
}

// NewPlanSet builds a plan set from an explicit mapping. Empty price ids
// are dropped so a partially configured environment only exposes the plans
// it can actually sell.
func NewPlanSet(prices map[string]string) *PlanSet {
	ps := &PlanSet{prices: make(map[string]string, len(prices))}
	for plan, price := range prices {
		plan = strings.ToLower(strings.TrimSpace(plan))
		price = strings.TrimSpace(price)
		if plan == "" || price == "" {
			continue
		}
		ps.prices[plan] = price
	}
	return ps
}

// NewPlanSetFromEnv loads the price mapping from environment configuration.
func NewPlanSetFromEnv() *PlanSet {
	return NewPlanSet(map[string]string{
		PlanMonthly: env.GetEnv("STRIPE_PRICE_MONTHLY", ""),
		PlanYearly:  env.GetEnv("STRIPE_PRICE_YEARLY", ""),
	})
}

// PriceID resolves a public plan id to the provider price id.
func (ps *PlanSet) PriceID(planID string) (string, bool) {
	price, ok := ps.prices[strings.ToLower(strings.TrimSpace(planID))]
	return price, ok
}

// PlanID resolves a provider price id back to the public plan id.
func (ps *PlanSet) PlanID(priceID string) (string, bool) {
	for plan, price := range ps.prices {
		if price == priceID {
			return plan, true
		}
	}
	return "", false
}
