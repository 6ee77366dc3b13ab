package billingsvc

import (
	"context"

	"github.com/darasalearn/darasa/core"
)

type dummyService struct{}

var _ core.BillingService = (*dummyService)(nil)

// NewDummyService is used in tests and local development without a billing backend.
func NewDummyService() core.BillingService {
	return &dummyService{}
}

func (dummyService) CreateCheckoutSession(ctx context.Context, customerEmail, plan string) (string, error) {
	return "https://billing.local/checkout", nil
}

func (dummyService) CreatePortalSession(ctx context.Context, customerEmail string) (string, error) {
	return "https://billing.local/portal", nil
}

func (dummyService) GetSubscription(ctx context.Context, customerEmail string) (core.Subscription, error) {
	return core.Subscription{Plan: "free", Status: "active"}, nil
}
