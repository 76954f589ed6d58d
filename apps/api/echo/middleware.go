package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

// activeUserMiddleware loads the signed in Alumni into the context and refuses deactivated accounts.
func activeUserMiddleware(svc alumni.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}

// roleMiddleware lets through users whose role priority is at least the one of role.
func roleMiddleware(svc alumni.Service, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.HasRole(role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// objectMiddleware loads the Alumni identified by the ":id" path param into the context.
func objectMiddleware(svc alumni.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == alumni.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding alumni by ID")
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

// otpRateLimiter limits code requests per client IP. A zero rate disables it.
func otpRateLimiter(conf *core.Config) echo.MiddlewareFunc {
	if conf.Server.OTPRateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(conf.Server.OTPRateLimit),
		Burst:     conf.Server.OTPRateBurst,
		ExpiresIn: 10 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		ErrorHandler: func(ctx echo.Context, err error) error {
			return errHttpForbidden
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return errTooManyRequests
		},
	})
}
