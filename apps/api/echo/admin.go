package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core/user"
	"github.com/darasalearn/darasa/core/violation"
)

// adminAccessApi exposes the admin portal's entry check: the client calls
// /admin/access on load and renders the portal, the denied screen or the
// timeout screen off the returned decision.
type adminAccessApi struct {
	svc        *user.Service
	resolver   *user.AdminResolver
	violations *violation.Service
	validate   *validator.Validate
}

func registerAdminAccessAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *user.Service,
	resolver *user.AdminResolver,
	violations *violation.Service,
	validate *validator.Validate,
) {
	api := adminAccessApi{
		svc:        svc,
		resolver:   resolver,
		violations: violations,
		validate:   validate,
	}

	ag := g.Group("/admin", jwt)
	ag.GET("/access", api.resolveAccess)
	ag.POST("/access-request", api.requestAccess)
}

func (api *adminAccessApi) resolveAccess(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	decision := api.resolver.Resolve(ctx.Request().Context(), &usr)
	if decision.Status == user.DecisionNotAdmin {
		recordUnauthorizedAccess(ctx, api.violations, usr)
	}
	return ctx.JSON(http.StatusOK, AccessDecisionResponse{Decision: decision})
}

func (api *adminAccessApi) requestAccess(ctx echo.Context) error {
	var data user.AdminAccessRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminAccessRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.RequestAdminAccess(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "requesting admin access")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your request has been sent to the platform owners for review."})
}
