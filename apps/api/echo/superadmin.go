package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

const errNoPermsToSetRole = "not enough rights to set this role"

type superAdminApi struct {
	svc      alumni.Service
	validate *validator.Validate
}

func registerSuperAdminAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := superAdminApi{svc: deps.AlumniSvc, validate: deps.Validate}

	mws := append(append([]echo.MiddlewareFunc{}, authed...), roleMiddleware(api.svc, alumni.RoleSuperAdmin))
	sg := g.Group("/superadmin", mws...)
	sg.GET("/roles", api.queryRoles)
	sg.GET("/admins", api.queryAdmins)
	sg.PUT("/users/:id/role", api.setRole, objectMiddleware(api.svc))
}

func (api *superAdminApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alumni.Roles)
}

func (api *superAdminApi) queryAdmins(ctx echo.Context) error {
	items, err := api.svc.QueryAdmins(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *superAdminApi) setRole(ctx echo.Context) error {
	obj, ok := ctx.Get(contextObjectKey).(alumni.Alumni)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	var data alumni.SetRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.CanManage(obj) {
		return errHttpForbidden
	}
	// ctxUser cannot set a role > their own
	if alumni.RolePriority(data.Role) > alumni.RolePriority(ctxUsr.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToSetRole})
	}

	obj, err = api.svc.SetRole(ctx.Request().Context(), obj, data.Role)
	if err != nil {
		return errors.Wrap(err, "setting role")
	}
	return ctx.JSON(http.StatusOK, obj)
}
