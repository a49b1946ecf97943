package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"compass/internal/model"
	"compass/internal/service"
	"compass/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PromptHandler handles stateless prompt resolution
type PromptHandler struct {
	resolver  *service.Resolver
	validator *validation.FilterValidator
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(resolver *service.Resolver, validator *validation.FilterValidator, timeout time.Duration, logger *zap.Logger) *PromptHandler {
	return &PromptHandler{
		resolver:  resolver,
		validator: validator,
		timeout:   timeout,
		logger:    logger,
	}
}

// ParsePrompt handles POST /api/v1/parse-prompt
func (h *PromptHandler) ParsePrompt(c *gin.Context) {
	var req model.ParsePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	current, err := h.validator.NormalizeJSON(req.CurrentFilters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.resolver.Resolve(ctx, req.Prompt, current, req.History)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filters, err := h.validator.Check(res.Filters)
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: resolved filters rejected: %w", service.ErrInvalidResponseShape, err))
		return
	}

	c.JSON(http.StatusOK, model.ParsePromptResponse{
		Filters:  filters,
		Message:  res.Message,
		FastPath: res.FastPath,
	})
}
