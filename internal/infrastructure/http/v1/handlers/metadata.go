package handlers

import (
	"github.com/gin-gonic/gin"

	"querykit/internal/core/apperror"
	"querykit/internal/infrastructure/http/v1/dto"
	"querykit/internal/metadata"
)

type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
}

func NewMetadataHandler(base *BaseHandler, registry *metadata.Registry) *MetadataHandler {
	return &MetadataHandler{BaseHandler: base, registry: registry}
}

// ListEntities returns a summary of every registered entity.
// GET /api/v1/meta
func (h *MetadataHandler) ListEntities(c *gin.Context) {
	h.OK(c, dto.NewEntitySummaries(h.registry.List()))
}

// GetEntity returns the full definition of one entity.
// GET /api/v1/meta/:name
func (h *MetadataHandler) GetEntity(c *gin.Context) {
	name := c.Param("name")
	def, ok := h.registry.Get(name)
	if !ok {
		h.HandleError(c, apperror.NewNotFound("entity", name))
		return
	}
	h.OK(c, def)
}
