package core

import (
	"context"
	"time"
)

// Subscription is the billing collaborator's view of a customer's plan.
type Subscription struct {
	Plan             string    `json:"plan"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	CancelAtEnd      bool      `json:"cancel_at_end"`
}

// BillingService is the narrow contract against the hosted billing functions.
// The billing backend itself (checkout, webhooks, invoicing) is an external collaborator.
type BillingService interface {
	// CreateCheckoutSession returns a URL the customer is redirected to in order to subscribe.
	CreateCheckoutSession(ctx context.Context, customerEmail, plan string) (string, error)
	// CreatePortalSession returns a URL to the customer's self-service billing portal.
	CreatePortalSession(ctx context.Context, customerEmail string) (string, error)
	// GetSubscription fetches the customer's current subscription, if any.
	GetSubscription(ctx context.Context, customerEmail string) (Subscription, error)
}
