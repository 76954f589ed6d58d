package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

var (
	orderingParam = "ordering"

	errInvalidValue = errors.New("invalid value")
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrdering(val)
	}
}

func bindQueryFilter(ctx echo.Context) (*alumni.QueryFilter, error) {
	filter := new(alumni.QueryFilter)
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		String("department", &filter.Department).
		String("college", &filter.College).
		String("course", &filter.Course).
		String("country", &filter.Country).
		String("city", &filter.City).
		Strings("role", &filter.Roles).
		Int("graduation_year_from", &filter.GraduationYearFrom).
		Int("graduation_year_to", &filter.GraduationYearTo).
		Time("created_from", &filter.CreatedFrom, time.RFC3339).
		Time("created_to", &filter.CreatedTo, time.RFC3339).
		BindError()
	if err != nil {
		return nil, bindingError(err)
	}

	if filter.IsVerified, err = bindOptionalBool(ctx, "is_verified"); err != nil {
		return nil, err
	}
	if filter.IsActive, err = bindOptionalBool(ctx, "is_active"); err != nil {
		return nil, err
	}
	return filter, nil
}

func bindLocationFilter(ctx echo.Context) (*alumni.LocationFilter, error) {
	filter := new(alumni.LocationFilter)
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		String("department", &filter.Department).
		String("college", &filter.College).
		String("course", &filter.Course).
		String("country", &filter.Country).
		Int("graduation_year", &filter.GraduationYear).
		BindError()
	if err != nil {
		return nil, bindingError(err)
	}
	return filter, nil
}

// bindOptionalBool returns nil when param is absent or empty.
func bindOptionalBool(ctx echo.Context, param string) (*bool, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldValidationError(param, errInvalidValue)
	}
	return &b, nil
}

// bindingError turns an echo binding failure into a field validation error.
func bindingError(err error) error {
	if bErr, ok := err.(*echo.BindingError); ok {
		return core.NewFieldValidationError(bErr.Field, errInvalidValue)
	}
	return errors.Wrap(err, "binding query params")
}
