package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

type authApi struct {
	userSvc  *user.Service
	classSvc *class.Service
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := authApi{
		userSvc:  opts.UserSvc,
		classSvc: opts.ClassSvc,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/password-reset*`
	ag.POST("/signup", api.signup)
	ag.POST("/signin", api.signin)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset/verify", api.verifyPasswordReset)
	ag.POST("/password-reset/confirm", api.confirmPasswordReset)

	// authed endpoints
	tg := ag.Group("", jwt)
	tg.POST("/token-refresh", api.refreshToken)
	tg.POST("/signup-tokens", api.createSignupToken, adminMiddleware())
}

// Handlers

func (api *authApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.userSvc); err != nil {
		return err
	}

	usr, err := api.userSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, AuthResponse{Token: token, User: newUserInfo(usr)})
}

func (api *authApi) signin(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, AuthResponse{Token: token, User: newUserInfo(usr)})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.ResetPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPasswordRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.userSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not leak account existence to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with a verification code.",
	})
}

func (api *authApi) verifyPasswordReset(ctx echo.Context) error {
	var data user.VerifyPasswordReset
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyPasswordReset")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.userSvc.VerifyPasswordReset(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "verifying password reset")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Verification code is valid."})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ConfirmPasswordReset
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmPasswordReset")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.userSvc.ConfirmPasswordReset(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "confirming password reset")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) createSignupToken(ctx echo.Context) error {
	var data user.NewSignupToken
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSignupToken")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	// a student token must point to a class with free capacity
	if data.Role == user.RoleStudent {
		cls, err := api.classSvc.GetByID(ctx.Request().Context(), data.ClassID)
		if err != nil {
			if errors.Cause(err) == class.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
			}
			return errors.Wrap(err, "finding class by ID")
		}
		if cls.IsFull() {
			return core.NewValidationError(class.ErrClassFull,
				core.FieldError{Field: "class_id", Error: class.ErrClassFull.Error()})
		}
	}

	tok, err := api.userSvc.CreateSignupToken(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating signup token")
	}
	return ctx.JSON(http.StatusCreated, tok)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	AuthResponse struct {
		Token string           `json:"token"`
		User  UserInfoResponse `json:"user"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}

func newUserInfo(usr user.User) UserInfoResponse {
	return UserInfoResponse{
		ID:       usr.ID,
		Username: usr.Username,
		FullName: usr.FullName,
		Email:    usr.Email,
		Role:     usr.Role,
		PhotoURL: usr.PhotoURL.String,
	}
}
