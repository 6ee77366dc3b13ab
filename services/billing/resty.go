package billingsvc

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
)

type restyService struct {
	client *resty.Client
	logger core.Logger
}

var _ core.BillingService = (*restyService)(nil)

// NewRestyService talks to the hosted billing functions over their JSON API.
func NewRestyService(conf *core.Config, logger core.Logger) *restyService {
	client := resty.New().
		SetBaseURL(conf.Billing.BaseURL).
		SetTimeout(conf.Billing.Timeout).
		SetHeader("Authorization", "Bearer "+conf.Billing.APIKey)
	return &restyService{client: client, logger: logger}
}

type sessionResponse struct {
	URL string `json:"url"`
}

func (svc restyService) CreateCheckoutSession(ctx context.Context, customerEmail, plan string) (string, error) {
	var out sessionResponse
	resp, err := svc.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"customer_email": customerEmail, "plan": plan}).
		SetResult(&out).
		Post("/checkout-sessions")
	if err != nil {
		return "", errors.Wrap(err, "creating checkout session")
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return "", errors.Errorf("creating checkout session: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.URL, nil
}

func (svc restyService) CreatePortalSession(ctx context.Context, customerEmail string) (string, error) {
	var out sessionResponse
	resp, err := svc.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"customer_email": customerEmail}).
		SetResult(&out).
		Post("/portal-sessions")
	if err != nil {
		return "", errors.Wrap(err, "creating portal session")
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return "", errors.Errorf("creating portal session: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.URL, nil
}

func (svc restyService) GetSubscription(ctx context.Context, customerEmail string) (core.Subscription, error) {
	var out core.Subscription
	resp, err := svc.client.R().
		SetContext(ctx).
		SetQueryParam("customer_email", customerEmail).
		SetResult(&out).
		Get("/subscriptions")
	if err != nil {
		return core.Subscription{}, errors.Wrap(err, "fetching subscription")
	}
	if resp.StatusCode() == http.StatusNotFound {
		return core.Subscription{}, nil
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return core.Subscription{}, errors.Errorf("fetching subscription: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out, nil
}
