package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"querykit/internal/core/apperror"
	"querykit/internal/domain/filter"
	"querykit/internal/infrastructure/http/v1/dto"
)

// SchemaHandler describes the registered filter schemas.
type SchemaHandler struct {
	*BaseHandler
	schemas map[string]*filter.Schema
}

func NewSchemaHandler(base *BaseHandler, schemas map[string]*filter.Schema) *SchemaHandler {
	return &SchemaHandler{BaseHandler: base, schemas: schemas}
}

// List returns the schema names.
// GET /api/v1/schemas
func (h *SchemaHandler) List(c *gin.Context) {
	names := make([]string, 0, len(h.schemas))
	for name := range h.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	h.OK(c, gin.H{"schemas": names})
}

// Get returns the flattened query keys of one schema.
// GET /api/v1/schemas/:name
func (h *SchemaHandler) Get(c *gin.Context) {
	name := c.Param("name")
	s, ok := h.schemas[name]
	if !ok {
		h.HandleError(c, apperror.NewNotFound("filter schema", name))
		return
	}
	h.OK(c, dto.NewSchemaResponse(s))
}
