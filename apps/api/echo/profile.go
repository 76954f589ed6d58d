package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core/alumni"
)

type profileApi struct {
	svc      alumni.Service
	validate *validator.Validate
}

func registerProfileAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := profileApi{svc: deps.AlumniSvc, validate: deps.Validate}

	pg := g.Group("/profile", authed...)
	pg.GET("", api.retrieve)
	pg.PUT("", api.update)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	a, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *profileApi) update(ctx echo.Context) error {
	a, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data alumni.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(a, api.validate); err != nil {
		return err
	}

	a, err = api.svc.UpdateProfile(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, a)
}
