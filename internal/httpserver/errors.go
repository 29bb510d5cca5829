package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// statusFor maps an error to its HTTP status and public body.
func statusFor(err error) (int, transport.ErrorResponse) {
	var (
		verr *apperr.ValidationError
		ref  *apperr.ReferenceError
		pub  *apperr.PublicError
		he   *echo.HTTPError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, transport.ErrorResponse{Message: verr.Message(), Errors: verr.Fields}
	case errors.As(err, &ref):
		v := ref.Validation()
		return http.StatusUnprocessableEntity, transport.ErrorResponse{Message: v.Message(), Errors: v.Fields}
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return http.StatusUnauthorized, transport.ErrorResponse{Message: "Invalid credentials"}
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized, transport.ErrorResponse{Message: "Unauthenticated."}
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, transport.ErrorResponse{Message: "This action is unauthorized."}
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, transport.ErrorResponse{Message: "Not Found."}
	case errors.Is(err, apperr.ErrConflict):
		msg := "Conflict."
		if errors.As(err, &pub) {
			msg = pub.Msg
		}
		return http.StatusConflict, transport.ErrorResponse{Message: msg}
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, transport.ErrorResponse{Message: msg}
	default:
		return http.StatusInternalServerError, transport.ErrorResponse{Message: "Server Error."}
	}
}

// ErrorHandler renders every error returned by handlers and middleware as
// a JSON body. Internal error details are logged, never sent.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, body := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", code, "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "error", werr)
	}
}
