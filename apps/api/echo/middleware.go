package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core/user"
	"github.com/darasalearn/darasa/core/violation"
)

// AccessDecisionResponse is returned whenever an admin access resolution does
// not end in a plain allow: the denied and timed-out outcomes both carry the
// full decision so the client can render the right screen.
type AccessDecisionResponse struct {
	user.Decision
	Error string `json:"error,omitempty"`
}

// adminResolveMiddleware guards admin endpoints with the full access cascade.
// Denied attempts are recorded as violations; a timed-out resolution is
// reported with its diagnostic instead of a bare 403 so support can act on it.
func adminResolveMiddleware(svc *user.Service, resolver *user.AdminResolver, violations *violation.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			decision := resolver.Resolve(ctx.Request().Context(), &usr)
			if decision.Status == user.DecisionAdmin {
				if contextHasAnyRole(ctx, roles) {
					return next(ctx)
				}
				return errHttpForbidden
			}

			if decision.TimedOut {
				return ctx.JSON(http.StatusForbidden, AccessDecisionResponse{
					Decision: decision,
					Error:    "admin access check timed out",
				})
			}

			recordUnauthorizedAccess(ctx, violations, usr)
			return errHttpForbidden
		}
	}
}

func recordUnauthorizedAccess(ctx echo.Context, violations *violation.Service, usr user.User) {
	req := ctx.Request()
	_, err := violations.Record(req.Context(), violation.NewViolation{
		UserID:   usr.ID,
		Kind:     violation.KindUnauthorizedAdmin,
		Detail:   req.Method + " " + req.URL.Path,
		SourceIP: ctx.RealIP(),
	})
	if err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "recording unauthorized access"))
	}
}
