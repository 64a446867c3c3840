// Package handlers provides the HTTP handlers of the query API.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"querykit/internal/core/apperror"
	"querykit/internal/domain/filter"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindQuery binds query parameters into obj using its form tags. Binding and
// validation failures become a validation error located at ["query", key].
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.HandleError(c, apperror.NewValidation(bindErrors(obj, err)))
		return false
	}
	return true
}

// HandleError registers err on the gin context and aborts the request.
// The JSON body is written by middleware.ErrorHandler.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends a 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func bindErrors(obj any, err error) []apperror.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperror.FieldError{{
			Loc:  []string{filter.LocRoot},
			Msg:  err.Error(),
			Type: "parsing",
		}}
	}

	out := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperror.FieldError{
			Loc:  []string{filter.LocRoot, formName(obj, fe.StructField())},
			Msg:  boundMessage(fe),
			Type: boundType(fe.Tag()),
		})
	}
	return out
}

func boundType(tag string) string {
	switch tag {
	case "min", "gte":
		return "greater_than_equal"
	case "max", "lte":
		return "less_than_equal"
	}
	return tag
}

func boundMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("Input should be greater than or equal to %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("Input should be less than or equal to %s", fe.Param())
	}
	return fmt.Sprintf("Input failed %q validation", fe.Tag())
}

// formName returns the form tag name of field, or field lowercased.
func formName(obj any, field string) string {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(field); ok {
			if tag := sf.Tag.Get("form"); tag != "" {
				return strings.Split(tag, ",")[0]
			}
		}
	}
	return strings.ToLower(field)
}
