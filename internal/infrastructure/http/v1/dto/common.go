// Package dto provides the response shapes of the query API that are not
// domain types.
package dto

import (
	"sort"

	"querykit/internal/domain/filter"
	"querykit/internal/metadata"
)

// ErrorResponse documents the error body written by middleware.ErrorHandler.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// CountResponse is the body of the count endpoints.
type CountResponse struct {
	Count int `json:"count"`
}

// SchemaField is one accepted query key of a filter schema.
type SchemaField struct {
	Key      string   `json:"key"`
	Type     string   `json:"type"`
	Wire     string   `json:"wire"`
	Required bool     `json:"required"`
	Default  any      `json:"default,omitempty"`
	Path     []string `json:"path"`
}

// SchemaResponse describes a filter schema in its flattened query form.
type SchemaResponse struct {
	Name        string        `json:"name"`
	SearchField string        `json:"search_field,omitempty"`
	Searchable  []string      `json:"searchable_fields,omitempty"`
	Fields      []SchemaField `json:"fields"`
}

// NewSchemaResponse flattens s (through the shared memo) into its response form.
func NewSchemaResponse(s *filter.Schema) SchemaResponse {
	flat := filter.FlattenCached(s)
	resp := SchemaResponse{
		Name:   s.Name(),
		Fields: make([]SchemaField, 0, len(flat)),
	}
	if st := s.Settings(); st.SearchField != "" {
		resp.SearchField = st.SearchField
		resp.Searchable = st.SearchableFields
	}
	for _, f := range flat {
		resp.Fields = append(resp.Fields, SchemaField{
			Key:      f.Key,
			Type:     f.Type.String(),
			Wire:     f.Wire.String(),
			Required: f.Required,
			Default:  f.Default,
			Path:     f.Path,
		})
	}
	return resp
}

// EntitySummary is the listing form of an entity definition.
type EntitySummary struct {
	Name      string   `json:"name"`
	Label     string   `json:"label,omitempty"`
	Columns   []string `json:"columns"`
	Relations []string `json:"relations,omitempty"`
}

// NewEntitySummaries summarizes defs, sorted by name.
func NewEntitySummaries(defs []*metadata.EntityDef) []EntitySummary {
	out := make([]EntitySummary, 0, len(defs))
	for _, d := range defs {
		rels := make([]string, 0, len(d.Relations))
		for _, r := range d.Relations {
			rels = append(rels, r.Name)
		}
		out = append(out, EntitySummary{Name: d.Name, Label: d.Label, Columns: d.ColumnNames(), Relations: rels})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
