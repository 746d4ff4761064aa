package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/assignment"
	"github.com/rahmanfaisal0414/backend-bimbel/core/attendance"
	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
	"github.com/rahmanfaisal0414/backend-bimbel/core/feedback"
	"github.com/rahmanfaisal0414/backend-bimbel/core/material"
	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
	"github.com/rahmanfaisal0414/backend-bimbel/core/student"
	"github.com/rahmanfaisal0414/backend-bimbel/core/subject"
	"github.com/rahmanfaisal0414/backend-bimbel/core/tutor"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// sentinelStatus maps domain sentinel errors to their HTTP status.
func sentinelStatus(err error) (int, bool) {
	switch err {
	case user.ErrNotFound, user.ErrTokenNotFound,
		student.ErrNotFound, tutor.ErrNotFound, tutor.ErrAvailabilityNotFound,
		class.ErrNotFound, subject.ErrNotFound, schedule.ErrNotFound,
		attendance.ErrNotFound, material.ErrNotFound,
		assignment.ErrNotFound, assignment.ErrSubmissionNotFound,
		feedback.ErrNotFound:
		return http.StatusNotFound, true
	case user.ErrTokenUsed, user.ErrOTPInvalid, user.ErrOTPExpired,
		class.ErrClassFull, class.ErrAlreadyEnrolled,
		schedule.ErrReschedulePending, tutor.ErrAvailabilityOverlap,
		material.ErrLinked, assignment.ErrHasSubmissions,
		attendance.ErrNotMarked:
		return http.StatusBadRequest, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

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
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.BusinessError:
			code = http.StatusBadRequest
			if origErr.Forbidden {
				code = http.StatusForbidden
			}
			message = origErr.Msg
		default:
			if status, ok := sentinelStatus(origErr); ok {
				code = status
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.UserID
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
