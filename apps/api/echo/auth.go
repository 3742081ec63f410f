package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/dgrijalva/jwt-go"

	"github.com/easystudy/backend/core"
	"github.com/easystudy/backend/core/user"
)

var (
	appJWTConfig   middleware.JWTConfig
	contextUserKey = "user"
)

// configureAuth sets up token generation and returns the JWT auth middleware.
func configureAuth(conf *core.Config) echo.MiddlewareFunc {
	user.ConfigureTokens(
		conf.AppName,
		conf.SecretKey,
		conf.Server.JWTExpirationDelta,
		conf.Server.JWTRefreshExpirationDelta,
	)
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(user.Claims),
	}
	return middleware.JWTWithConfig(appJWTConfig)
}

func getContextClaims(ctx echo.Context) (user.Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*user.Claims); ok {
			return *claims, nil
		}
	}
	return user.Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service, clms ...user.Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims user.Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// refreshToken re-issues a token for a still-active user while the original
// issue window is open.
func refreshToken(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", user.ErrAccountInactive
	}

	// check if refresh has not expired
	if user.RefreshExpired(claims.OrigIssuedAt) {
		return "", errRefreshExpired
	}

	newClaims := user.GetUserClaims(usr, claims.OrigIssuedAt)
	token, err := user.GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
