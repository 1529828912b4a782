// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/barflow-backend/internal/pkg/apperr"
)

// statusForCode maps stable error codes to HTTP statuses. Clients switch
// on the code, never the message.
var statusForCode = map[apperr.Code]int{
	apperr.CodeNotFound:              http.StatusNotFound,
	apperr.CodeNotOwner:              http.StatusForbidden,
	apperr.CodeInvalidInput:          http.StatusBadRequest,
	apperr.CodeInvalidThreshold:      http.StatusBadRequest,
	apperr.CodeDuplicateThreshold:    http.StatusConflict,
	apperr.CodeInsufficientAvailable: http.StatusConflict,
	apperr.CodeInsufficientStock:     http.StatusConflict,
	apperr.CodeOverReturn:            http.StatusConflict,
	apperr.CodeNotConsignment:        http.StatusConflict,
	apperr.CodeInvalidTransition:     http.StatusConflict,
	apperr.CodeConservationViolation: http.StatusConflict,
}

// respondError writes a coded error response. Uncoded errors become an
// opaque 500 so internal details never leak.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status, ok := statusForCode[appErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

// parseIDParam reads a positive integer path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return uint(value), true
}
