package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

const (
	contextClaimsKey = "userToken"
	contextUserKey   = "user"
	contextObjectKey = "object"

	jwtAudience  = "alumni"
	bearerScheme = "Bearer "
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	Dashboard    string `json:"dashboard,omitempty"` // SPA route to redirect to
}

func GetUserClaims(conf *core.Config, a alumni.Alumni, origIat ...int64) *Claims {
	now := time.Now()

	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   a.ID,
			Audience:  jwt.ClaimStrings{jwtAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Email:        a.Email,
		Role:         a.Role,
		Dashboard:    a.Dashboard(),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(conf *core.Config, tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(token *jwt.Token) (interface{}, error) { return []byte(conf.SecretKey), nil },
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(conf.AppName),
		jwt.WithAudience(jwtAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// jwtMiddleware authenticates the request from its "Authorization: Bearer <token>" header.
func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if len(auth) <= len(bearerScheme) || !strings.EqualFold(auth[:len(bearerScheme)], bearerScheme) {
				return errMissingJWT
			}
			claims, err := parseToken(conf, strings.TrimSpace(auth[len(bearerScheme):]))
			if err != nil {
				return errInvalidJWT
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func authenticate(ctx echo.Context, email, pwd string, svc alumni.Service) (alumni.Alumni, error) {
	a, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == alumni.ErrNotFound {
			return alumni.Alumni{}, errAuthenticationFailed
		}
		return alumni.Alumni{}, errors.Wrap(err, "finding alumni by email")
	}
	if err = a.CheckPassword(pwd); err != nil {
		return alumni.Alumni{}, errAuthenticationFailed
	}
	if !a.IsActive {
		return alumni.Alumni{}, errAccountDeactivated
	}
	a, err = svc.SetLastLogin(ctx.Request().Context(), a)
	if err != nil {
		return alumni.Alumni{}, errors.Wrap(err, "setting lastLogin")
	}
	return a, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the signed in Alumni, loading it once per request.
func getContextUser(ctx echo.Context, svc alumni.Service, clms ...Claims) (alumni.Alumni, error) {
	if a, ok := ctx.Get(contextUserKey).(alumni.Alumni); ok {
		return a, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return alumni.Alumni{}, errors.Wrap(err, "getting context claims")
		}
	}

	a, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == alumni.ErrNotFound {
			return alumni.Alumni{}, errUnauthorized // deleted since the token was issued
		}
		return alumni.Alumni{}, errors.Wrap(err, "finding alumni by ID")
	}
	ctx.Set(contextUserKey, a)
	return a, nil
}

func refreshToken(ctx echo.Context, conf *core.Config, svc alumni.Service) (string, alumni.Alumni, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", alumni.Alumni{}, errors.Wrap(err, "getting context claims")
	}

	a, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", alumni.Alumni{}, errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !a.IsActive {
		return "", alumni.Alumni{}, errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", alumni.Alumni{}, errRefreshExpired
	}

	token, err := GenerateToken(conf, GetUserClaims(conf, a, claims.OrigIssuedAt))
	if err != nil {
		return "", alumni.Alumni{}, errors.Wrap(err, "generating token")
	}
	return token, a, nil
}
