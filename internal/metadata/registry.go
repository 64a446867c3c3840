// Package metadata describes the entities filters and orderings are compiled against.
package metadata

import (
	"fmt"
	"sort"
	"sync"
)

// FieldType defines the data type of a column.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number" // float/decimal
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeUUID    FieldType = "uuid"
	TypeMoney   FieldType = "money"
)

// EntityDef describes a queryable entity: its directly comparable columns
// and the relations that can be traversed from it.
type EntityDef struct {
	Name      string        `json:"name"`
	Label     string        `json:"label,omitempty"`
	Table     string        `json:"-"`
	Fields    []FieldDef    `json:"fields"`
	Relations []RelationDef `json:"relations,omitempty"`
}

// FieldDef describes a column.
type FieldDef struct {
	Name     string    `json:"name"`
	Label    string    `json:"label,omitempty"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`
}

// JoinTable describes the association table of a many-to-many relation.
// SourceKey references the owning entity, TargetKey the related one.
type JoinTable struct {
	Table     string `json:"table"`
	SourceKey string `json:"sourceKey"`
	TargetKey string `json:"targetKey"`
}

// RelationDef describes a relation to another entity.
//
// For a direct relation the join condition is
// owner.LocalKey = target.ForeignKey. With Through set, the owner's LocalKey
// matches Through.SourceKey and Through.TargetKey matches target.ForeignKey.
type RelationDef struct {
	Name       string     `json:"name"`
	Target     string     `json:"target"`
	Many       bool       `json:"many"`
	LocalKey   string     `json:"-"`
	ForeignKey string     `json:"-"`
	Through    *JoinTable `json:"-"`

	entity *EntityDef
}

// Entity returns the related entity. It is nil until the owning registry is linked.
func (r *RelationDef) Entity() *EntityDef {
	return r.entity
}

// Field returns the column with the given name.
func (e *EntityDef) Field(name string) (*FieldDef, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// HasField reports whether name is a column of the entity.
func (e *EntityDef) HasField(name string) bool {
	_, ok := e.Field(name)
	return ok
}

// Relation returns the relation with the given name.
func (e *EntityDef) Relation(name string) (*RelationDef, bool) {
	for i := range e.Relations {
		if e.Relations[i].Name == name {
			return &e.Relations[i], true
		}
	}
	return nil, false
}

// ColumnNames lists column names in declaration order.
func (e *EntityDef) ColumnNames() []string {
	cols := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// Registry stores entity definitions.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*EntityDef
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntityDef),
	}
}

// Register adds definitions. Relations are resolved by Link.
func (r *Registry) Register(defs ...EntityDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		d := def
		d.Fields = append([]FieldDef(nil), def.Fields...)
		d.Relations = append([]RelationDef(nil), def.Relations...)
		r.entities[d.Name] = &d
	}
}

// Link resolves every relation target. It fails on the first unknown target.
func (r *Registry) Link() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range r.entities {
		for i := range def.Relations {
			rel := &def.Relations[i]
			target, ok := r.entities[rel.Target]
			if !ok {
				return fmt.Errorf("entity %s: relation %s targets unknown entity %q", def.Name, rel.Name, rel.Target)
			}
			rel.entity = target
		}
	}
	return nil
}

func (r *Registry) Get(name string) (*EntityDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entities[name]
	return d, ok
}

func (r *Registry) List() []*EntityDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*EntityDef, 0, len(r.entities))
	for _, def := range r.entities {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
