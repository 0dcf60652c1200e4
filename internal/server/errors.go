package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abhisek/wordmine/internal/session"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// errorHandler renders every error as {success: false, error}. Domain
// errors are mapped to status codes here so handlers can return them
// unwrapped.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := statusFor(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorBody{Success: false, Error: msg})
}

func statusFor(err error) (int, string) {
	var verr *session.ValidationError
	var herr *echo.HTTPError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, session.ErrSessionConflict):
		return http.StatusConflict, session.ErrSessionConflict.Error()
	case errors.As(err, &herr):
		if msg, ok := herr.Message.(string); ok {
			return herr.Code, msg
		}
		return herr.Code, http.StatusText(herr.Code)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
