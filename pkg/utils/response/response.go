// Package response standardizes the JSON envelope of the ops HTTP API.
package response

import (
	"github.com/gin-gonic/gin"

	apperrors "evograder/pkg/errors"
)

// Response is the uniform reply envelope.
type Response struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
}

// Success replies 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    apperrors.Success,
		Message: apperrors.Success.Message(),
		Data:    data,
	})
}

// Error replies with the HTTP status and code carried by the error.
func Error(c *gin.Context, err error) {
	e := apperrors.GetError(err)
	c.JSON(e.Code.HTTPStatus(), Response{
		Code:    e.Code,
		Message: e.Error(),
	})
}
