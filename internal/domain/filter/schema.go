// Package filter describes permitted filter fields and converts between the
// nested filter shape and the flat query-string shape.
//
// A Schema is built once, usually at package init, and must not be modified
// after it has been flattened or packed:
//
//	var AddressFilters = filter.NewSchema("AddressFilters").
//		Leaf("city", filter.String).
//		Leaf("zip_code__in", filter.Seq(filter.String))
//
//	var OrderFilters = filter.NewSchema("OrderFilters").
//		Search("search", "shipping_address__line_1").
//		Leaf("total_amount__gt", filter.Int).
//		Nested("shipping_address", AddressFilters)
package filter

import "fmt"

// DefaultSearchField is the search field name used when a schema does not set one.
const DefaultSearchField = "search"

// FieldKind tags the variant of a Field.
type FieldKind int

const (
	LeafField FieldKind = iota
	NestedField
	SearchField
)

func (k FieldKind) String() string {
	switch k {
	case NestedField:
		return "nested"
	case SearchField:
		return "search"
	default:
		return "leaf"
	}
}

// Field is one declared filter field.
type Field struct {
	Name string
	Kind FieldKind

	// Leaf and search fields
	Type       ValueType
	Required   bool
	Default    any
	HasDefault bool

	// Nested fields
	Child *Schema
}

// Settings is the per-schema configuration.
type Settings struct {
	// Prefix replaces the mount field name when the schema is flattened as a nested field.
	Prefix string
	// SearchField names the free-text search field.
	SearchField string
	// SearchableFields are `__`-joined paths matched by the search term.
	SearchableFields []string
}

// Schema is an explicit filter schema descriptor.
type Schema struct {
	name     string
	settings Settings
	fields   []Field
}

// NewSchema creates an empty schema.
func NewSchema(name string) *Schema {
	return &Schema{name: name}
}

// FieldOption customizes a leaf field.
type FieldOption func(*Field)

// Required marks the field as mandatory.
func Required() FieldOption {
	return func(f *Field) { f.Required = true }
}

// Default sets the value used when the field is absent from the request.
func Default(v any) FieldOption {
	return func(f *Field) {
		f.Default = v
		f.HasDefault = true
	}
}

// Leaf declares a plain field `name` or `name__operator`.
func (s *Schema) Leaf(name string, t ValueType, opts ...FieldOption) *Schema {
	f := Field{Name: name, Kind: LeafField, Type: t}
	for _, opt := range opts {
		opt(&f)
	}
	s.add(f)
	return s
}

// Nested declares a relation filter mounted under name.
func (s *Schema) Nested(name string, child *Schema) *Schema {
	if child == nil {
		panic(fmt.Sprintf("filter: nested field %s.%s has nil schema", s.name, name))
	}
	s.add(Field{Name: name, Kind: NestedField, Child: child})
	return s
}

// Search declares the free-text search field and, optionally, the paths it matches.
func (s *Schema) Search(name string, searchable ...string) *Schema {
	s.add(Field{Name: name, Kind: SearchField, Type: String})
	s.settings.SearchField = name
	if len(searchable) > 0 {
		s.settings.SearchableFields = append([]string(nil), searchable...)
	}
	return s
}

// Searchable replaces the searchable paths.
func (s *Schema) Searchable(paths ...string) *Schema {
	s.settings.SearchableFields = append([]string{}, paths...)
	return s
}

func (s *Schema) add(f Field) {
	for i := range s.fields {
		if s.fields[i].Name == f.Name {
			s.fields[i] = f
			return
		}
	}
	s.fields = append(s.fields, f)
}

// Extend returns a new schema that starts with all fields and settings of s.
func (s *Schema) Extend(name string) *Schema {
	return &Schema{
		name:     name,
		settings: s.Settings(),
		fields:   append([]Field(nil), s.fields...),
	}
}

// WithPrefix returns a schema with the same fields mounted under prefix.
// The result has its own identity, so the same schema can be mounted under
// several nested fields without key collisions.
func WithPrefix(s *Schema, prefix string) *Schema {
	out := &Schema{
		name:     s.name,
		settings: s.Settings(),
		fields:   append([]Field(nil), s.fields...),
	}
	out.settings.Prefix = prefix
	return out
}

func (s *Schema) Name() string { return s.name }

// Settings returns a copy of the schema settings.
func (s *Schema) Settings() Settings {
	out := s.settings
	out.SearchableFields = append([]string(nil), s.settings.SearchableFields...)
	return out
}

// SearchFieldName returns the configured search field or DefaultSearchField.
func (s *Schema) SearchFieldName() string {
	if s.settings.SearchField != "" {
		return s.settings.SearchField
	}
	return DefaultSearchField
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field returns the declared field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MountPrefix is the key prefix used when f is flattened.
func (f Field) MountPrefix() string {
	if f.Child != nil && f.Child.settings.Prefix != "" {
		return f.Child.settings.Prefix
	}
	return f.Name
}
