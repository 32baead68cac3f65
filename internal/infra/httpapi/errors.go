package httpapi

import (
	"errors"
	"net/http"

	"spill_report_service/internal/app"

	"github.com/gin-gonic/gin"
)

// statusFor maps an application error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, app.ErrUpdateTargetMissing):
		return http.StatusNotFound
	case errors.Is(err, app.ErrAllocationConflict):
		return http.StatusConflict
	case errors.Is(err, app.ErrStoreTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, app.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	c.AbortWithStatusJSON(code, gin.H{
		"error":     err.Error(),
		"retryable": app.IsRetryable(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
