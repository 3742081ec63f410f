package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/easystudy/backend/core"
	"github.com/easystudy/backend/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated.")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "Refresh has expired.")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "Permission denied.")

	// user-safe messages per service error
	userErrorStatus = map[error]int{
		user.ErrNotFound:           http.StatusNotFound,
		user.ErrEmailExists:        http.StatusConflict,
		user.ErrInvalidCredentials: http.StatusUnauthorized,
		user.ErrUserTypeMismatch:   http.StatusUnauthorized,
		user.ErrAccountInactive:    http.StatusForbidden,
		user.ErrInvalidTransition:  http.StatusConflict,
		user.ErrInvalidToken:       http.StatusUnauthorized,
		user.ErrTokenExpired:       http.StatusUnauthorized,
	}
	userErrorMessage = map[error]string{
		user.ErrNotFound:           "User not found.",
		user.ErrEmailExists:        "Email already exists.",
		user.ErrInvalidCredentials: "Invalid credentials.",
		user.ErrUserTypeMismatch:   "Invalid credentials or user type.",
		user.ErrAccountInactive:    "Account is inactive. Please contact tutor for approval.",
		user.ErrInvalidTransition:  "Account is not awaiting approval.",
		user.ErrInvalidToken:       "Invalid token.",
		user.ErrTokenExpired:       "Token expired.",
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that maps our
// errors to stable status codes and the `{success, message, ...}` envelope the
// front end consumes. signalShutdown is called whenever a core shutdown error
// is caught so the server can be gracefully brought down.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}
		var fields map[string]string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fields[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = "All fields are required."
		case *core.ValidationError:
			if origErr.Fields != nil {
				fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fields[fErr.Field] = fErr.Error
				}
			}
			code = http.StatusBadRequest
			message = origErr.Error()
			if message == "" {
				message = "Invalid request."
			}
		default:
			if status, ok := userErrorStatus[origErr]; ok {
				code = status
				message = userErrorMessage[origErr]
				break
			}

			// any other error is a server error; never leak its text
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		resp := echo.Map{"success": false, "message": message}
		if fields != nil {
			resp["errors"] = fields
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
