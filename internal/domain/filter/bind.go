package filter

import (
	"net/url"
	"strings"

	"querykit/internal/core/apperror"
)

// LocRoot prefixes the location of every binding and packing error.
const LocRoot = "query"

// FlatValues are raw values keyed by flat key.
type FlatValues map[string]any

// Bind picks the raw value of every flat field from q.
//
// Absent keys fall back to the field default. Missing required keys are
// reported together as one validation error. Keys not in fields are ignored.
// Repeated keys of a sequence field are joined, so `id__in=1&id__in=2`
// equals `id__in=1,2`.
func Bind(fields FlatFields, q url.Values) (FlatValues, error) {
	out := make(FlatValues, len(fields))
	var errs []apperror.FieldError

	for _, f := range fields {
		raw, ok := q[f.Key]
		if ok && len(raw) > 0 {
			if f.Type.Seq {
				out[f.Key] = strings.Join(raw, SeqSeparator)
			} else {
				out[f.Key] = raw[0]
			}
			continue
		}
		if f.HasDefault {
			if f.Default != nil {
				out[f.Key] = f.Default
			}
			continue
		}
		if f.Required {
			errs = append(errs, missing(f.Path))
		}
	}

	if len(errs) > 0 {
		return nil, apperror.NewValidation(errs)
	}
	return out, nil
}

func missing(path []string) apperror.FieldError {
	return apperror.FieldError{
		Loc:  append([]string{LocRoot}, path...),
		Msg:  "Field required",
		Type: "missing",
	}
}
