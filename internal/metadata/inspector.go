package metadata

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Inspect analyzes a struct and returns its EntityDef.
//
// Columns come from `db:"name"` tags. Relations are declared with
// `rel:"name,target=entity,local=col,foreign=col[,many][,through=table:source:target]"`.
// Fields tagged db:"-" or without either tag are skipped.
func Inspect(entity any, name, table string) EntityDef {
	t := reflect.TypeOf(entity)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if name == "" {
		name = toSnake(t.Name())
	}
	if table == "" {
		table = name
	}

	def := EntityDef{
		Name:   name,
		Label:  t.Name(),
		Table:  table,
		Fields: make([]FieldDef, 0),
	}

	inspectStruct(t, &def)

	return def
}

func inspectStruct(t reflect.Type, def *EntityDef) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.PkgPath != "" { // unexported
			continue
		}

		// Embedded structs are flattened
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			inspectStruct(field.Type, def)
			continue
		}

		if tag, ok := field.Tag.Lookup("rel"); ok {
			if rel, ok := parseRelation(tag); ok {
				def.Relations = append(def.Relations, rel)
			}
			continue
		}

		col, ok := field.Tag.Lookup("db")
		if !ok || col == "-" || col == "" {
			continue
		}

		def.Fields = append(def.Fields, FieldDef{
			Name:     strings.Split(col, ",")[0],
			Label:    field.Name,
			Type:     mapFieldType(field),
			Required: field.Type.Kind() != reflect.Ptr,
		})
	}
}

func parseRelation(tag string) (RelationDef, bool) {
	parts := strings.Split(tag, ",")
	if parts[0] == "" {
		return RelationDef{}, false
	}
	rel := RelationDef{Name: parts[0]}
	for _, p := range parts[1:] {
		key, val, _ := strings.Cut(p, "=")
		switch key {
		case "many":
			rel.Many = true
		case "target":
			rel.Target = val
		case "local":
			rel.LocalKey = val
		case "foreign":
			rel.ForeignKey = val
		case "through":
			bits := strings.Split(val, ":")
			if len(bits) == 3 {
				rel.Through = &JoinTable{Table: bits[0], SourceKey: bits[1], TargetKey: bits[2]}
				rel.Many = true
			}
		}
	}
	if rel.Target == "" {
		rel.Target = rel.Name
	}
	return rel, true
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

func mapFieldType(field reflect.StructField) FieldType {
	t := field.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case timeType:
		return TypeDate
	case uuidType:
		return TypeUUID
	case decimalType:
		return TypeMoney
	}

	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Bool:
		return TypeBoolean
	default:
		return TypeString // fallback
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Values extracts the db-tagged column values of a struct (or pointer to one).
// Nil pointers become nil values.
func Values(entity any) map[string]any {
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	out := make(map[string]any)
	collectValues(v, out)
	return out
}

func collectValues(v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectValues(v.Field(i), out)
			continue
		}
		if _, ok := field.Tag.Lookup("rel"); ok {
			continue
		}
		col, ok := field.Tag.Lookup("db")
		if !ok || col == "-" || col == "" {
			continue
		}

		fv := v.Field(i)
		name := strings.Split(col, ",")[0]
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				out[name] = nil
				continue
			}
			fv = fv.Elem()
		}
		out[name] = fv.Interface()
	}
}
