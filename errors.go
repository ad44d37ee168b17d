package edupress

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/edupress/repository"
)

// ValidationError is returned for a publish request that failed input
// checks. It is rendered as {"message", "errors"} with status 400.
type ValidationError struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Errors)
}

type errorBody struct {
	Message string `json:"message"`
}

const msgInternal = "Internal server error"

// errorResponse maps err to a status and the body the client sees. Causes of
// 5xx responses never reach the body.
func errorResponse(err error) (int, any) {
	var ve *ValidationError
	var he *echo.HTTPError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: "Article not found"}
	case errors.Is(err, repository.ErrPersistenceConflict):
		return http.StatusConflict, errorBody{Message: "Article was modified concurrently, please retry"}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errorBody{Message: "Request body too large"}
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return he.Code, errorBody{Message: msgInternal}
		}
		return he.Code, errorBody{Message: fmt.Sprint(he.Message)}
	default:
		return http.StatusInternalServerError, errorBody{Message: msgInternal}
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, body := errorResponse(err)
	if code >= http.StatusInternalServerError {
		a.Logger.ErrorContext(c.Request().Context(), "server error",
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"error", err,
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
