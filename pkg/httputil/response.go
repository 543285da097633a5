package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/schoolmed/pkg/errors"
)

// Response wraps portal-side responses. It mirrors the upstream envelope so
// pages only ever branch on Success.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  []string          `json:"errors,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithMessage sends a success response with a user-facing message.
func RespondWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Internal(err)
	}

	resp := Response{
		Success: false,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	}
	if appErr.Err != nil && appErr.Code != errors.ErrInternal {
		resp.Errors = []string{appErr.Err.Error()}
	}
	c.AbortWithStatusJSON(appErr.StatusCode(), resp)
}

// RespondWithValidation sends a 422 with the field-keyed messages.
func RespondWithValidation(c *gin.Context, message string, fields map[string]string) {
	RespondWithError(c, errors.Validation(message, fields))
}
