package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"querykit/internal/core/apperror"
)

// Pack rebuilds a nested instance of s from flat values.
//
// Every nested field gets an instance, even when none of its keys are
// present. Coercion errors from all fields are collected into one
// validation error.
func Pack(s *Schema, values FlatValues) (*Instance, error) {
	var errs []apperror.FieldError
	inst := pack(s, values, nil, &errs)
	if len(errs) > 0 {
		return nil, apperror.NewValidation(errs)
	}
	return inst, nil
}

func pack(s *Schema, values FlatValues, path []string, errs *[]apperror.FieldError) *Instance {
	inst := newInstance(s)

	for _, f := range s.fields {
		if f.Kind == NestedField {
			prefix := f.MountPrefix()
			inst.nested[f.Name] = pack(f.Child, subValues(values, prefix), appendPath(path, prefix), errs)
			continue
		}
		packLeaf(inst, f, values, path, errs)
	}
	return inst
}

func packLeaf(inst *Instance, f Field, values FlatValues, path []string, errs *[]apperror.FieldError) {
	raw, ok := values[f.Name]
	if !ok {
		switch {
		case f.HasDefault:
			raw = f.Default
		case f.Required:
			*errs = append(*errs, missing(appendPath(path, f.Name)))
			return
		default:
			return
		}
	}
	if raw == nil {
		return
	}

	v, err := Coerce(f.Type, raw)
	if err != nil {
		*errs = append(*errs, apperror.FieldError{
			Loc:  append([]string{LocRoot}, appendPath(path, f.Name)...),
			Msg:  err.Error(),
			Type: errorType(err),
		})
		return
	}
	inst.values[f.Name] = v
}

func subValues(values FlatValues, prefix string) FlatValues {
	p := prefix + KeySeparator
	sub := make(FlatValues)
	for k, v := range values {
		if strings.HasPrefix(k, p) {
			sub[k[len(p):]] = v
		}
	}
	return sub
}

func appendPath(path []string, name string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, name)
}

// Parse binds q against the memoized flat view of s and packs the result.
func Parse(s *Schema, q url.Values) (*Instance, error) {
	values, err := Bind(FlattenCached(s), q)
	if err != nil {
		return nil, err
	}
	return Pack(s, values)
}

// Defaults packs s with nothing supplied, so only declared defaults are set.
func Defaults(s *Schema) (*Instance, error) {
	return Parse(s, nil)
}

// Build packs a nested map keyed by schema field names. Nested fields take a
// map[string]any or an *Instance. Unknown keys are reported as errors.
func Build(s *Schema, m map[string]any) (*Instance, error) {
	var errs []apperror.FieldError
	inst := build(s, m, nil, &errs)
	if len(errs) > 0 {
		return nil, apperror.NewValidation(errs)
	}
	return inst, nil
}

func build(s *Schema, m map[string]any, path []string, errs *[]apperror.FieldError) *Instance {
	unknown := make([]string, 0)
	for k := range m {
		if _, ok := s.Field(k); !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		*errs = append(*errs, apperror.FieldError{
			Loc:  append([]string{LocRoot}, appendPath(path, k)...),
			Msg:  "Extra inputs are not permitted",
			Type: "extra_forbidden",
		})
	}

	inst := newInstance(s)
	for _, f := range s.fields {
		if f.Kind != NestedField {
			packLeaf(inst, f, m, path, errs)
			continue
		}

		childPath := appendPath(path, f.Name)
		switch v := m[f.Name].(type) {
		case nil:
			inst.nested[f.Name] = build(f.Child, nil, childPath, errs)
		case *Instance:
			inst.nested[f.Name] = v
		case map[string]any:
			inst.nested[f.Name] = build(f.Child, v, childPath, errs)
		default:
			*errs = append(*errs, apperror.FieldError{
				Loc:  append([]string{LocRoot}, childPath...),
				Msg:  fmt.Sprintf("Input should be a valid %s filter, got %T", f.Child.Name(), v),
				Type: "model_type",
			})
			inst.nested[f.Name] = newInstance(f.Child)
		}
	}
	return inst
}
