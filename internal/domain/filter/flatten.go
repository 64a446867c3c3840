package filter

// KeySeparator joins mount prefixes and leaf names in flat keys.
const KeySeparator = "__"

// FlatField is one entry of a flattened schema: the query-string key and the
// type a request binder has to accept for it.
type FlatField struct {
	Key string `json:"key"`
	// Wire is the type on the wire. Sequences travel as strings.
	Wire ValueType `json:"-"`
	// Type is the declared type the packer coerces to.
	Type       ValueType `json:"-"`
	Required   bool      `json:"required"`
	Default    any       `json:"default,omitempty"`
	HasDefault bool      `json:"-"`
	// Path is Key split into mount prefixes and the leaf name.
	Path []string `json:"-"`
}

// FlatFields is an ordered flattened field map.
type FlatFields []FlatField

// Keys lists the flat keys in order.
func (ff FlatFields) Keys() []string {
	keys := make([]string, 0, len(ff))
	for _, f := range ff {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get returns the field with the given flat key.
func (ff FlatFields) Get(key string) (FlatField, bool) {
	for _, f := range ff {
		if f.Key == key {
			return f, true
		}
	}
	return FlatField{}, false
}

// Flatten turns a nested schema into flat `prefix__field[__operator]` keys.
//
// Sequence fields become strings and their defaults are comma-joined. Nested
// fields are re-keyed under the child's Prefix or, without one, the mount name.
func Flatten(s *Schema) FlatFields {
	var out FlatFields
	for _, f := range s.fields {
		switch f.Kind {
		case NestedField:
			prefix := f.MountPrefix()
			for _, sub := range Flatten(f.Child) {
				sub.Key = prefix + KeySeparator + sub.Key
				sub.Path = append([]string{prefix}, sub.Path...)
				out = append(out, sub)
			}
		default:
			ff := FlatField{
				Key:        f.Name,
				Wire:       f.Type,
				Type:       f.Type,
				Required:   f.Required,
				Default:    f.Default,
				HasDefault: f.HasDefault,
				Path:       []string{f.Name},
			}
			if f.Type.Seq {
				ff.Wire = String
				if f.HasDefault && f.Default != nil {
					ff.Default = FormatValue(f.Default)
				}
			}
			out = append(out, ff)
		}
	}
	return out
}
