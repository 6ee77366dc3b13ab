package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core/card"
)

type (
	cardApi struct {
		svc      card.CardService
		validate *validator.Validate
	}

	CardReorderRequest struct {
		Source      int `json:"source"`
		Destination int `json:"destination"`
	}
)

func registerCardAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, svc card.CardService, validate *validator.Validate) {
	api := cardApi{svc: svc, validate: validate}

	cg := g.Group("/courses/:id/cards", jwt, admin)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.POST("/reorder", api.reorder)
	cg.PUT("/:cardID", api.update)
	cg.DELETE("/:cardID", api.destroy)
}

func (api *cardApi) query(ctx echo.Context) error {
	cards, err := api.svc.Query(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying cards")
	}
	if cards == nil {
		cards = []card.Flashcard{}
	}
	return ctx.JSON(http.StatusOK, cards)
}

func (api *cardApi) create(ctx echo.Context) error {
	var data card.NewCard
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCard")
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating card")
	}
	return ctx.JSON(http.StatusCreated, fc)
}

func (api *cardApi) update(ctx echo.Context) error {
	var data card.UpdateCard
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCard")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fc, err := api.svc.Update(ctx.Request().Context(), ctx.Param("cardID"), data)
	if err != nil {
		if errors.Cause(err) == card.ErrCardNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating card")
	}
	return ctx.JSON(http.StatusOK, fc)
}

func (api *cardApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("cardID")); err != nil {
		if errors.Cause(err) == card.ErrCardNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting card")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *cardApi) reorder(ctx echo.Context) error {
	var data CardReorderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CardReorderRequest")
	}

	cards, err := api.svc.Reorder(ctx.Request().Context(), ctx.Param("id"), data.Source, data.Destination)
	if err != nil {
		return errors.Wrap(err, "reordering cards")
	}
	if cards == nil {
		cards = []card.Flashcard{}
	}
	return ctx.JSON(http.StatusOK, cards)
}
