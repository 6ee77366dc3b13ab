package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/user"
)

type (
	billingApi struct {
		users *user.Service
		svc   core.BillingService
	}

	CheckoutRequest struct {
		Plan string `json:"plan"`
	}

	SessionResponse struct {
		URL string `json:"url"`
	}
)

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, users *user.Service, svc core.BillingService) {
	api := billingApi{users: users, svc: svc}

	bg := g.Group("/billing", jwt)
	bg.GET("/subscription", api.subscription)
	bg.POST("/checkout-session", api.checkout)
	bg.POST("/portal-session", api.portal)
}

func (api *billingApi) subscription(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.GetSubscription(ctx.Request().Context(), usr.Email)
	if err != nil {
		return errors.Wrap(err, "fetching subscription")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *billingApi) checkout(ctx echo.Context) error {
	var data CheckoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckoutRequest")
	}
	if data.Plan == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "plan", Error: "this field is required"})
	}

	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	url, err := api.svc.CreateCheckoutSession(ctx.Request().Context(), usr.Email, data.Plan)
	if err != nil {
		return errors.Wrap(err, "creating checkout session")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{URL: url})
}

func (api *billingApi) portal(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	url, err := api.svc.CreatePortalSession(ctx.Request().Context(), usr.Email)
	if err != nil {
		return errors.Wrap(err, "creating portal session")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{URL: url})
}
