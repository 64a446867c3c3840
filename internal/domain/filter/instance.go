package filter

import "net/url"

// Instance is a packed filter: the values a caller supplied, arranged like
// its schema. It is not modified after packing.
type Instance struct {
	schema *Schema
	values map[string]any
	nested map[string]*Instance
}

func newInstance(s *Schema) *Instance {
	return &Instance{
		schema: s,
		values: make(map[string]any),
		nested: make(map[string]*Instance),
	}
}

func (i *Instance) Schema() *Schema { return i.schema }

// Value returns the coerced value of a leaf or search field.
func (i *Instance) Value(name string) (any, bool) {
	if i == nil {
		return nil, false
	}
	v, ok := i.values[name]
	return v, ok
}

// Nested returns the instance of a nested field. Packing always creates one,
// so it is nil only for names that are not nested fields.
func (i *Instance) Nested(name string) *Instance {
	if i == nil {
		return nil
	}
	return i.nested[name]
}

// IsEmpty reports whether no value was supplied anywhere in the tree.
func (i *Instance) IsEmpty() bool {
	if i == nil {
		return true
	}
	if len(i.values) > 0 {
		return false
	}
	for _, n := range i.nested {
		if !n.IsEmpty() {
			return false
		}
	}
	return true
}

// Map renders the instance as nested maps, omitting empty nested instances.
func (i *Instance) Map() map[string]any {
	out := make(map[string]any)
	if i == nil {
		return out
	}
	for k, v := range i.values {
		out[k] = v
	}
	for k, n := range i.nested {
		if !n.IsEmpty() {
			out[k] = n.Map()
		}
	}
	return out
}

// Encode renders the instance back to flat query parameters.
func (i *Instance) Encode() url.Values {
	q := url.Values{}
	i.encode(q, "")
	return q
}

func (i *Instance) encode(q url.Values, prefix string) {
	if i == nil {
		return
	}
	for _, f := range i.schema.fields {
		key := prefix + f.Name
		if f.Kind == NestedField {
			i.nested[f.Name].encode(q, prefix+f.MountPrefix()+KeySeparator)
			continue
		}
		if v, ok := i.values[f.Name]; ok && v != nil {
			q.Set(key, FormatValue(v))
		}
	}
}
