package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/locvowork/attendance_bot/internal/logger"
)

// Response is the JSON envelope of every non-file reply.
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ResponseSuccess writes a success envelope.
func ResponseSuccess(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Message: message, Data: data})
}

// ResponseError logs err and writes an error envelope. The error detail is
// not sent to the client.
func ResponseError(c echo.Context, status int, message string, err error) error {
	if err != nil {
		logger.ErrorLog(c.Request().Context(), "%s: %v", message, err)
	}
	return c.JSON(status, Response{Message: message, Error: message})
}
