package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"compass/internal/model"
	"compass/internal/service"
	"compass/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler handles conversation session requests
type SessionHandler struct {
	sessions     *service.SessionService
	validator    *validation.FilterValidator
	timeout      time.Duration
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService, validator *validation.FilterValidator, timeout time.Duration, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		validator:    validator,
		timeout:      timeout,
		defaultLimit: 50,
		maxLimit:     200,
		logger:       logger,
	}
}

// Start handles POST /api/v1/sessions. The body is optional.
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	filters, err := h.validator.NormalizeJSON(req.Filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Message handles POST /api/v1/sessions/:id/messages
func (h *SessionHandler) Message(c *gin.Context) {
	var req model.SessionMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.sessions.Send(ctx, c.Param("id"), req.Prompt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Turns handles GET /api/v1/sessions/:id/turns
func (h *SessionHandler) Turns(c *gin.Context) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid limit"})
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	turns, err := h.sessions.Turns(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}
