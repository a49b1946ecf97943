package handler

import (
	"context"
	"errors"
	"net/http"

	"compass/internal/model"
	"compass/internal/repository"
	"compass/internal/service"
	"compass/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps domain errors onto the HTTP error envelope. Model answers
// are matched first since a rejected model value also carries a validation error.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *validation.Error
	switch {
	case errors.Is(err, service.ErrMalformedResponse), errors.Is(err, service.ErrInvalidResponseShape):
		logger.Warn("language model answer not understood", zap.Error(err))
		c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: "Could not understand that request, please rephrase it"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid filter parameters", Details: verr.Details})
	case errors.Is(err, repository.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Session not found"})
	case errors.Is(err, repository.ErrSessionConflict):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: "Session was updated by another request, please retry"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, service.ErrGatewayUnavailable):
		logger.Warn("language model unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "The search assistant is unavailable, please try again later"})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request: " + err.Error()})
}
