// Package pagination computes page windows and response metadata.
package pagination

import (
	"fmt"

	"querykit/internal/core/apperror"
)

const (
	DefaultSize = 50
	MaxSize     = 200
)

// Params is a pagination strategy.
type Params interface {
	// Window returns the slice to fetch. all disables slicing.
	Window() (offset, limit int, all bool)
	// Meta describes a result of total matching items.
	Meta(total int) Meta
	// Validate checks bounds.
	Validate() error
}

// Meta is the page metadata of a response.
type Meta struct {
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
}

// Page is a paginated response.
type Page[T any] struct {
	Items []T `json:"items"`
	Meta  Meta `json:"meta"`
}

// PageParams selects a page by number.
type PageParams struct {
	Page   int  `form:"page,default=1" json:"page" binding:"min=1"`
	Size   int  `form:"size,default=50" json:"size" binding:"min=1,max=200"`
	GetAll bool `form:"get_all" json:"get_all"`
}

// DefaultPage returns the first page of DefaultSize items.
func DefaultPage() PageParams {
	return PageParams{Page: 1, Size: DefaultSize}
}

func (p PageParams) Window() (int, int, bool) {
	return (p.Page - 1) * p.Size, p.Size, p.GetAll
}

func (p PageParams) Meta(total int) Meta {
	if p.GetAll {
		return allItems(total)
	}
	return Meta{
		CurrentPage:  p.Page,
		ItemsPerPage: p.Size,
		TotalPages:   TotalPages(total, p.Size),
		TotalItems:   total,
	}
}

func (p PageParams) Validate() error {
	var errs []apperror.FieldError
	if p.Page < 1 {
		errs = append(errs, bound("page", "greater than or equal to 1", "greater_than_equal"))
	}
	errs = append(errs, checkSize("size", p.Size)...)
	if len(errs) > 0 {
		return apperror.NewValidation(errs)
	}
	return nil
}

// LimitOffsetParams selects a window by offset.
type LimitOffsetParams struct {
	Offset int  `form:"offset,default=0" json:"offset" binding:"min=0"`
	Limit  int  `form:"limit,default=50" json:"limit" binding:"min=1,max=200"`
	GetAll bool `form:"get_all" json:"get_all"`
}

// DefaultLimitOffset returns the first DefaultSize items.
func DefaultLimitOffset() LimitOffsetParams {
	return LimitOffsetParams{Limit: DefaultSize}
}

func (p LimitOffsetParams) Window() (int, int, bool) {
	return p.Offset, p.Limit, p.GetAll
}

// Meta reports the page the offset falls into.
func (p LimitOffsetParams) Meta(total int) Meta {
	if p.GetAll {
		return allItems(total)
	}
	return Meta{
		CurrentPage:  p.Offset/p.Limit + 1,
		ItemsPerPage: p.Limit,
		TotalPages:   TotalPages(total, p.Limit),
		TotalItems:   total,
	}
}

func (p LimitOffsetParams) Validate() error {
	var errs []apperror.FieldError
	if p.Offset < 0 {
		errs = append(errs, bound("offset", "greater than or equal to 0", "greater_than_equal"))
	}
	errs = append(errs, checkSize("limit", p.Limit)...)
	if len(errs) > 0 {
		return apperror.NewValidation(errs)
	}
	return nil
}

// allItems is the get_all metadata. total_pages stays 1 even with no items.
func allItems(total int) Meta {
	return Meta{
		CurrentPage:  1,
		ItemsPerPage: total,
		TotalPages:   1,
		TotalItems:   total,
	}
}

// TotalPages is ceil(total/size); zero items give zero pages.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Calculate returns the metadata for total items under params.
func Calculate(total int, params Params) Meta {
	return params.Meta(total)
}

// Paginate wraps one fetched window of items.
func Paginate[T any](items []T, total int, params Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: params.Meta(total)}
}

// Slice applies the window of params to an in-memory list.
func Slice[T any](items []T, params Params) []T {
	offset, limit, all := params.Window()
	if all {
		return items
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func checkSize(name string, v int) []apperror.FieldError {
	switch {
	case v < 1:
		return []apperror.FieldError{bound(name, "greater than or equal to 1", "greater_than_equal")}
	case v > MaxSize:
		return []apperror.FieldError{bound(name, fmt.Sprintf("less than or equal to %d", MaxSize), "less_than_equal")}
	}
	return nil
}

func bound(name, msg, typ string) apperror.FieldError {
	return apperror.FieldError{
		Loc:  []string{"query", name},
		Msg:  "Input should be " + msg,
		Type: typ,
	}
}
