package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

type accountApi struct {
	conf       *core.Config
	logger     core.Logger
	svc        alumni.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerAuthAPI(g *echo.Group, authed []echo.MiddlewareFunc, limiter echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		conf:       deps.Conf,
		logger:     deps.Logger,
		svc:        deps.AlumniSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/send-otp", api.sendOTP, limiter)
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword, limiter)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, authed...)
	ag.GET("/me", api.me, authed...)
}

// Handlers

func (api *accountApi) sendOTP(ctx echo.Context) error {
	var data alumni.RegistrationDetails
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegistrationDetails")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	if err := api.svc.SendRegistrationOTP(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "sending registration otp")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "A verification code has been sent to " + data.Email + ".",
	})
}

func (api *accountApi) register(ctx echo.Context) error {
	var data alumni.NewAlumni
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAlumni")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	a, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering alumni")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, a))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusCreated, RegisterResponse{Alumni: a, Token: token, Dashboard: a.Dashboard()})
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, a))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Dashboard: a.Dashboard()})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if cause := errors.Cause(err); !(err == nil || cause == alumni.ErrNotFound || cause == alumni.ErrOTPCooldown) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with a code to reset your password.",
	})
}

func (api *accountApi) confirmPasswordReset(ctx echo.Context) error {
	var data alumni.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, a, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Dashboard: a.Dashboard()})
}

func (api *accountApi) me(ctx echo.Context) error {
	a, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, MeResponse{Alumni: a, Dashboard: a.Dashboard()})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token     string `json:"token"`
		Dashboard string `json:"dashboard"`
	}

	RegisterResponse struct {
		Alumni    alumni.Alumni `json:"alumni"`
		Token     string        `json:"token"`
		Dashboard string        `json:"dashboard"`
	}

	MeResponse struct {
		Alumni    alumni.Alumni `json:"alumni"`
		Dashboard string        `json:"dashboard"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.NormalizeEmail(lr.Email)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.NormalizeEmail(pr.Email)
	return validate.Struct(pr)
}
