package handlers

import (
	"errors"
	"net/http"

	"github.com/garagehub/funnel-api/internal/models"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error envelope returned by every endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is the plain acknowledgement envelope
type SuccessResponse struct {
	Message string `json:"message"`
}

// respondError maps domain errors onto HTTP statuses. Every category the
// flow can produce has a distinct, user-facing message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrNotInCatalog),
		errors.Is(err, models.ErrInvalidYear),
		errors.Is(err, models.ErrInvalidPhone),
		errors.Is(err, models.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrCooldownActive):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrSendInFlight),
		errors.Is(err, models.ErrVerifyInFlight),
		errors.Is(err, models.ErrNoOTPSession),
		errors.Is(err, models.ErrSubmissionNotReady):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrCatalogUnavailable):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Failed to load car data. Please retry."})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}
