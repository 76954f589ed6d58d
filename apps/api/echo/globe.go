package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core/alumni"
)

type globeApi struct {
	svc alumni.Service
}

func registerGlobeAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := globeApi{svc: deps.AlumniSvc}

	gg := g.Group("/alumni-globe", authed...)
	gg.GET("/locations", api.locations)
	gg.GET("/stats", api.stats)
}

func (api *globeApi) locations(ctx echo.Context) error {
	filter, err := bindLocationFilter(ctx)
	if err != nil {
		return err
	}

	markers, err := api.svc.Locations(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying locations")
	}
	return ctx.JSON(http.StatusOK, markers)
}

func (api *globeApi) stats(ctx echo.Context) error {
	st, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, st)
}
