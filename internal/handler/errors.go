package handler

import (
	"errors"
	"net/http"

	"studenthousing/internal/repository"
	"studenthousing/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service and store errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrAlreadyExists), errors.Is(err, service.ErrReindexInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrNarrativeGeneration):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, msg string, err error) {
	c.JSON(statusFor(err), gin.H{"error": msg + ": " + err.Error()})
}
