package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "querykit/internal/core/context"
	"querykit/internal/domain"
	"querykit/internal/domain/filter"
	"querykit/internal/domain/pagination"
	"querykit/internal/infrastructure/http/v1/dto"
)

const (
	orderByParam = "order_by"
	pagingParam  = "paging"
	pagingOffset = "offset"
)

// ListHandler serves the list and count endpoints of one resource.
type ListHandler struct {
	*BaseHandler
	svc *domain.QueryService
	res domain.Resource
}

// NewListHandler creates a list handler for res.
func NewListHandler(base *BaseHandler, svc *domain.QueryService, res domain.Resource) *ListHandler {
	return &ListHandler{BaseHandler: base, svc: svc, res: res}
}

// List handles GET /api/v1/{resource}.
//
// Query keys of the resource's filter schema filter the rows, order_by sorts
// them and page/size (or offset/limit with paging=offset) select the window.
func (h *ListHandler) List(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	page, ok := h.bindPage(c)
	if !ok {
		return
	}
	q.Page = page

	result, err := h.svc.List(c.Request.Context(), h.res.Entity, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, result)
}

// Count handles GET /api/v1/{resource}/count.
func (h *ListHandler) Count(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}

	n, err := h.svc.Count(c.Request.Context(), h.res.Entity, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, dto.CountResponse{Count: n})
}

func (h *ListHandler) listQuery(c *gin.Context) (domain.ListQuery, bool) {
	ctx := appctx.WithQuery(c.Request.Context(), h.res.Entity, h.res.Filters.Name())
	c.Request = c.Request.WithContext(ctx)

	inst, err := filter.Parse(h.res.Filters, c.Request.URL.Query())
	if err != nil {
		h.HandleError(c, err)
		return domain.ListQuery{}, false
	}

	orderBy := c.Query(orderByParam)
	if orderBy == "" {
		orderBy = h.res.DefaultOrder
	}
	return domain.ListQuery{Filter: inst, OrderBy: orderBy}, true
}

func (h *ListHandler) bindPage(c *gin.Context) (pagination.Params, bool) {
	if c.Query(pagingParam) == pagingOffset {
		var p pagination.LimitOffsetParams
		if !h.BindQuery(c, &p) {
			return nil, false
		}
		return p, true
	}

	var p pagination.PageParams
	if !h.BindQuery(c, &p) {
		return nil, false
	}
	return p, true
}
