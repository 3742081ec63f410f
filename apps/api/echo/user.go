package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/easystudy/backend/core"
	"github.com/easystudy/backend/core/user"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service, validate *validator.Validate) {
	api := userApi{
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints
	// TODO: rate limit `/login` & `/register`
	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)

	// authed endpoints
	mg := ag.Group("", jwt)
	mg.POST("/refresh", api.refresh)
	mg.GET("/me", api.me)

	// tutor portal
	tg := g.Group("/tutor/students", jwt, tutorMiddleware())
	tg.GET("/pending", api.queryPendingStudents)
	tg.POST("/:id/approve", api.approveStudent)
	tg.POST("/:id/reject", api.rejectStudent)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("Malformed request body."))
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	message := "Tutor registered successfully. You can now log in."
	if usr.IsStudent() {
		message = "User registered successfully. Awaiting approval."
	}
	resp := echo.Map{
		"success": true,
		"message": message,
		"user_id": usr.ID,
	}
	if usr.AdminCode != "" {
		// TODO: deliver the admin code via the tutor dashboard only; returning
		// it to the registering client defeats the out-of-band approval.
		resp["admin_code"] = usr.AdminCode
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *userApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("Malformed request body."))
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		// do not reveal whether the email exists
		if errors.Cause(err) == user.ErrNotFound {
			return user.ErrInvalidCredentials
		}
		return err
	}

	token, err := user.GenerateToken(user.GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    newUserPayload(usr),
	})
}

func (api *userApi) refresh(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Token refreshed",
		"token":   token,
	})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "OK",
		"user":    newUserPayload(usr),
	})
}

func (api *userApi) queryPendingStudents(ctx echo.Context) error {
	students, err := api.svc.QueryPendingStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pending students")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  "OK",
		"students": newPendingStudentPayloads(students),
	})
}

func (api *userApi) approveStudent(ctx echo.Context) error {
	usr, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Student approved successfully.",
		"user":    newUserPayload(usr),
	})
}

func (api *userApi) rejectStudent(ctx echo.Context) error {
	if err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Student rejected successfully.",
	})
}
