package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/BeygonK/Health-Information-System/pkg/errors"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Error *appErrors.Error `json:"error"`
}

// JSON sends a success response. Bodies are the bare resource, not wrapped.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	if appErr.Status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="health-information-system"`)
	}
	_ = c.Error(err)
	c.JSON(appErr.Status, ErrorEnvelope{Error: appErr})
}
