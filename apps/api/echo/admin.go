package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core/alumni"
)

var errObjNotFoundInCtx = errors.New("alumni object not found in echo.Context")

type adminApi struct {
	svc      alumni.Service
	validate *validator.Validate
}

func registerAdminAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{svc: deps.AlumniSvc, validate: deps.Validate}

	mws := append(append([]echo.MiddlewareFunc{}, authed...), roleMiddleware(api.svc, alumni.RoleAdmin))
	ag := g.Group("/admin", mws...)
	ag.GET("/stats", api.stats)
	ag.GET("/alumni", api.query)
	ag.DELETE("/alumni", api.destroyMultiple)
	ag.POST("/alumni/verify", api.verify)

	// detail endpoints
	dg := ag.Group("/alumni/:id", objectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *adminApi) query(ctx echo.Context) error {
	filter, err := bindQueryFilter(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	items, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying alumni")
	}
	if items == nil {
		items = []alumni.Alumni{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *adminApi) retrieve(ctx echo.Context) error {
	obj, ok := ctx.Get(contextObjectKey).(alumni.Alumni)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api *adminApi) update(ctx echo.Context) error {
	obj, err := api.manageableObject(ctx)
	if err != nil {
		return err
	}

	var data alumni.AdminUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminUpdate")
	}

	obj, err = api.svc.AdminUpdate(ctx.Request().Context(), obj, data)
	if err != nil {
		return errors.Wrap(err, "updating alumni")
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api *adminApi) destroy(ctx echo.Context) error {
	obj, err := api.manageableObject(ctx)
	if err != nil {
		return err
	}

	if _, err = api.svc.Delete(ctx.Request().Context(), obj.ID); err != nil {
		return errors.Wrap(err, "deleting alumni")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	items, err := api.manageableObjects(ctx, query.IDs, true /* skipMissing */)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID)
	}

	if _, err = api.svc.Delete(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting alumni")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) verify(ctx echo.Context) error {
	var data alumni.VerifyAlumni
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyAlumni")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	items, err := api.manageableObjects(ctx, data.IDs, false /* skipMissing */)
	if err != nil {
		return err
	}

	items, err = api.svc.SetVerified(ctx.Request().Context(), *data.Verified, items...)
	if err != nil {
		return errors.Wrap(err, "verifying alumni")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *adminApi) stats(ctx echo.Context) error {
	st, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

// manageableObject returns the context object if the signed in user may manage it.
func (api *adminApi) manageableObject(ctx echo.Context) (alumni.Alumni, error) {
	obj, ok := ctx.Get(contextObjectKey).(alumni.Alumni)
	if !ok {
		return alumni.Alumni{}, errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return alumni.Alumni{}, errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.CanManage(obj) {
		return alumni.Alumni{}, errHttpForbidden
	}
	return obj, nil
}

// manageableObjects loads the Alumni identified by ids, failing if the signed in user may not manage one of them.
// Unknown IDs are skipped when skipMissing is set and make the request fail with 404 otherwise.
func (api *adminApi) manageableObjects(ctx echo.Context, ids []string, skipMissing bool) ([]alumni.Alumni, error) {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return nil, errors.Wrap(err, "getting context user")
	}

	seen := make(map[string]bool, len(ids))
	items := make([]alumni.Alumni, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		a, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			if errors.Cause(err) == alumni.ErrNotFound {
				if skipMissing {
					continue
				}
				return nil, errHttpNotFound
			}
			return nil, errors.Wrap(err, "finding alumni by ID")
		}
		if !ctxUsr.CanManage(a) {
			return nil, errHttpForbidden
		}
		items = append(items, a)
	}
	return items, nil
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}
