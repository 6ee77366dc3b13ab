package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core/violation"
)

type (
	violationApi struct {
		svc *violation.Service
	}

	PurgeRequest struct {
		RetentionDays int `json:"retention_days" validate:"omitempty,min=1"`
	}

	PurgeResponse struct {
		Purged int `json:"purged"`
	}
)

// defaultViolationRetention bounds how far back the violation log is kept
// when a purge request does not say otherwise.
const defaultViolationRetention = 90 * 24 * time.Hour

func registerViolationAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, svc *violation.Service) {
	api := violationApi{svc: svc}

	vg := g.Group("/violations", jwt, admin)
	vg.GET("", api.query)
	vg.GET("/:id", api.retrieve)
	vg.POST("/purge", api.purge)
}

func (api *violationApi) query(ctx echo.Context) error {
	filter := new(violation.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []violation.Violation{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	violations, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying violations")
	}
	if violations == nil {
		violations = []violation.Violation{}
	}
	return ctx.JSON(http.StatusOK, violations)
}

func (api *violationApi) retrieve(ctx echo.Context) error {
	v, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == violation.ErrViolationNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding violation by ID")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *violationApi) purge(ctx echo.Context) error {
	var data PurgeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PurgeRequest")
	}

	retention := defaultViolationRetention
	if data.RetentionDays > 0 {
		retention = time.Duration(data.RetentionDays) * 24 * time.Hour
	}

	n, err := api.svc.Purge(ctx.Request().Context(), retention)
	if err != nil {
		return errors.Wrap(err, "purging violations")
	}
	return ctx.JSON(http.StatusOK, PurgeResponse{Purged: n})
}
