package httperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func New(status int, message string) Body {
	return Body{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	}
}

func Write(c echo.Context, status int, message string) error {
	return c.JSON(status, New(status, message))
}

// Handler is installed as echo's HTTPErrorHandler so router and framework errors share the envelope.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "An unexpected error occurred"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if he.Code < http.StatusInternalServerError {
			message = fmt.Sprint(he.Message)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = Write(c, status, message)
}
