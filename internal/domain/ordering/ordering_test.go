package ordering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querykit/internal/core/apperror"
	"querykit/internal/metadata"
)

func orderEntity(t *testing.T) *metadata.EntityDef {
	t.Helper()
	reg := metadata.NewRegistry()
	reg.Register(
		metadata.EntityDef{
			Name:   "address",
			Fields: []metadata.FieldDef{{Name: "id"}, {Name: "city"}},
		},
		metadata.EntityDef{
			Name:   "item",
			Fields: []metadata.FieldDef{{Name: "id"}, {Name: "sku"}},
		},
		metadata.EntityDef{
			Name:   "order",
			Fields: []metadata.FieldDef{{Name: "id"}, {Name: "name"}, {Name: "total_amount"}},
			Relations: []metadata.RelationDef{
				{Name: "shipping_address", Target: "address", LocalKey: "shipping_address_id", ForeignKey: "id"},
				{Name: "items", Target: "item", Many: true, LocalKey: "id", ForeignKey: "order_id"},
			},
		},
	)
	require.NoError(t, reg.Link())
	e, _ := reg.Get("order")
	return e
}

func TestCompile(t *testing.T) {
	e := orderEntity(t)

	tests := []struct {
		orderBy string
		want    string
	}{
		{"", ""},
		{"-name", "-name"},
		{"-invalid,-name", "-name"},
		{"+name,-total_amount", "name,-total_amount"},
		{"name,,id", "name,id"},
		{"shipping_address__city,-id", "shipping_address__city,-id"},
		{"items__sku,name", "name"},
		{"shipping_address,shipping_address__zip", ""},
		{"-", ""},
	}

	for _, tt := range tests {
		t.Run(tt.orderBy, func(t *testing.T) {
			terms, err := Compile(e, tt.orderBy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, String(terms))
		})
	}
}

func TestCompile_Terms(t *testing.T) {
	terms, err := Compile(orderEntity(t), "-shipping_address__city")
	require.NoError(t, err)
	require.Len(t, terms, 1)

	term := terms[0]
	assert.Equal(t, "city", term.Column)
	assert.Equal(t, Desc, term.Direction)
	require.Len(t, term.Relations, 1)
	assert.Equal(t, "shipping_address", term.Relations[0].Name)
}

func TestCompile_Empty(t *testing.T) {
	terms, err := Compile(nil, "")
	require.NoError(t, err)
	assert.Empty(t, terms)

	_, err = Compile(nil, "name")
	assert.True(t, apperror.IsMissingContext(err))
}
