package handler

import (
	"net/http"

	"compass/internal/model"
	"compass/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ModelsHandler lists the language models reachable through the gateway
type ModelsHandler struct {
	lister service.ModelLister
	logger *zap.Logger
}

// NewModelsHandler creates a new models handler. lister may be nil.
func NewModelsHandler(lister service.ModelLister, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{lister: lister, logger: logger}
}

// List handles GET /api/v1/models
func (h *ModelsHandler) List(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Language model gateway is not configured"})
		return
	}

	models, err := h.lister.ListModels(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, model.ModelsResponse{Models: models})
}
