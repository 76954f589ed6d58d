package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

var (
	errMissingJWT           = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidJWT           = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errOTPCooldown          = echo.NewHTTPError(http.StatusTooManyRequests, alumni.ErrOTPCooldown.Error())
	errTooManyRequests      = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

// errorResponse resolves err to a status code and a JSON body.
// internal is true for errors the client is not meant to understand; their body only
// carries details in debug mode.
func errorResponse(err error, translator ut.Translator, debug bool) (code int, body interface{}, internal bool) {
	cause := errors.Cause(err)
	switch cause {
	case alumni.ErrNotFound:
		cause = errHttpNotFound
	case alumni.ErrOTPCooldown:
		cause = errOTPCooldown
	}

	switch e := cause.(type) {
	case *echo.HTTPError:
		if inner, ok := e.Internal.(*echo.HTTPError); ok {
			e = inner
		}
		code, body = e.Code, e.Message
	case validator.ValidationErrors:
		fields := make(map[string]string, len(e))
		for _, fe := range e {
			fields[fe.Field()] = fe.Translate(translator)
		}
		code, body = http.StatusBadRequest, fields
	case *core.ValidationError:
		code, body = http.StatusBadRequest, e.Error()
		if len(e.Fields) > 0 {
			body = e.FieldMap()
		}
	default:
		code, body, internal = http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), true
		if debug {
			body = err.Error()
		}
	}

	if msg, ok := body.(string); ok {
		body = echo.Map{"error": msg}
	}
	return code, body, internal
}

// newAppHTTPErrorHandler returns an echo.HTTPErrorHandler rendering errors with errorResponse.
// Internal errors are logged, and signalShutdown is called when one of them is a core shutdown error.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, internal := errorResponse(err, translator, ctx.Echo().Debug)
		if internal {
			var caller alumni.Alumni
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				caller = alumni.Alumni{ID: claims.Subject, Email: claims.Email, Role: claims.Role}
			}
			logger.Error(fmt.Sprintf("%s %s: %v", ctx.Request().Method, ctx.Path(), err), errors.WithStack(err), caller)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
