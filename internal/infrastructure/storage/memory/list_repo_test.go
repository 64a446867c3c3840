package memory

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querykit/internal/domain"
	"querykit/internal/domain/filter"
	"querykit/internal/domain/pagination"
	"querykit/internal/domain/predicate"
	"querykit/internal/metadata"
	"querykit/internal/shop"
)

type fixture struct {
	repo *ListRepo
	reg  *metadata.Registry
}

func setup(t *testing.T) fixture {
	t.Helper()
	reg, err := shop.NewRegistry()
	require.NoError(t, err)

	store := NewStore()
	for _, tbl := range shop.Fixtures().Tables() {
		require.NoError(t, store.Insert(tbl.Table, tbl.Rows...))
	}
	repo, err := NewListRepo(store)
	require.NoError(t, err)
	return fixture{repo: repo, reg: reg}
}

func (f fixture) list(t *testing.T, entity string, s *filter.Schema, query string, params pagination.Params) pagination.Page[domain.Row] {
	t.Helper()
	q, err := url.ParseQuery(query)
	require.NoError(t, err)

	def, ok := f.reg.Get(entity)
	require.True(t, ok)
	inst, err := filter.Parse(s, q)
	require.NoError(t, err)

	plan, err := domain.Prepare(def, domain.ListQuery{Filter: inst, OrderBy: q.Get("order_by"), Page: params})
	require.NoError(t, err)

	page, err := f.repo.List(context.Background(), plan)
	require.NoError(t, err)
	return page
}

func column(rows []domain.Row, name string) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r[name])
	}
	return out
}

func TestListRepo_Filters(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		entity string
		schema *filter.Schema
		query  string
		want   []any
	}{
		{"category search", shop.EntityCategory, shop.CategoryFilters, "search=kit", []any{"kitchen"}},
		{"ilike auto wraps", shop.EntityProduct, shop.ProductFilters, "name__ilike=pan&price__lt=3000&price__gt=1500", []any{"Frying Pan"}},
		{"search with filters", shop.EntityProduct, shop.ProductFilters, "search=pan&price__lt=3000&price__gt=1500", []any{"Frying Pan"}},
		{"search through relation", shop.EntityProduct, shop.ProductFilters, "search=KIDS", []any{"Table Soccer"}},
		{"many relation uses any", shop.EntityProduct, shop.ProductFilters, "categories__id__in=1,2,3", []any{"Frying Pan", "Toaster", "Table Soccer"}},
		{"many relation nin", shop.EntityProduct, shop.ProductFilters, "categories__id__nin=1,3,4,6", []any{"Table Soccer", "Washing Machine"}},
		{"isnull", shop.EntityProduct, shop.ProductFilters, "deleted_at__isnull=false", []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := f.list(t, tt.entity, tt.schema, tt.query, pagination.PageParams{Page: 1, Size: 50})
			assert.Equal(t, tt.want, column(page.Items, "name"))
			assert.Equal(t, len(tt.want), page.Meta.TotalItems)
		})
	}
}

func TestListRepo_Orders(t *testing.T) {
	f := setup(t)
	params := pagination.DefaultPage()

	page := f.list(t, shop.EntityOrder, shop.OrderFilters, "search=west", params)
	assert.Equal(t, []any{int64(30699)}, column(page.Items, "total_amount"))

	page = f.list(t, shop.EntityOrder, shop.OrderFilters, "shipping_address__zip_code=92223&total_amount__gt=1000", params)
	assert.Empty(t, page.Items)

	page = f.list(t, shop.EntityOrder, shop.OrderFilters, "shipping_address__zip_code__in=90123,1&total_amount__lt=6000", params)
	assert.Equal(t, []any{int64(1), int64(2)}, column(page.Items, "id"))

	page = f.list(t, shop.EntityOrder, shop.OrderFilters, "items__qty__gte=2", params)
	assert.Equal(t, []any{int64(1)}, column(page.Items, "id"))

	page = f.list(t, shop.EntityOrder, shop.OrderFilters, "items__product_id=1&items__qty=1", params)
	assert.Equal(t, []any{int64(2)}, column(page.Items, "id"))
}

func TestListRepo_EmptySearchableFields(t *testing.T) {
	f := setup(t)
	s := filter.NewSchema("S").Search("search")

	page := f.list(t, shop.EntityCategory, s, "search=test", pagination.DefaultPage())
	assert.Len(t, page.Items, 7)
}

func TestListRepo_SearchIsLiteral(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.repo.store.Insert("categories", shop.Category{ID: 8, Name: "sale 50% off"}))

	tests := []struct {
		query string
		want  []any
	}{
		{"search=50%25", []any{"sale 50% off"}},
		{"search=0%25+o", []any{"sale 50% off"}},
		{"search=0_", []any{}},
		{"search=k%25n", []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page := f.list(t, shop.EntityCategory, shop.CategoryFilters, tt.query, pagination.DefaultPage())
			assert.Equal(t, tt.want, column(page.Items, "name"))
		})
	}
}

func TestListRepo_Ordering(t *testing.T) {
	f := setup(t)

	page := f.list(t, shop.EntityCategory, shop.CategoryFilters, "order_by=-name", pagination.DefaultPage())
	assert.Equal(t, []any{"rest", "other", "kitchen", "kids", "garden", "entertainment", "car"}, column(page.Items, "name"))

	page = f.list(t, shop.EntityOrder, shop.OrderFilters, "order_by=-shipping_address__line_1,-id", pagination.DefaultPage())
	assert.Equal(t, []any{int64(3), int64(4), int64(2), int64(1)}, column(page.Items, "id"))

	page = f.list(t, shop.EntityProduct, shop.ProductFilters, "order_by=-invalid,price", pagination.DefaultPage())
	assert.Equal(t, int64(2000), page.Items[0]["price"])
}

func TestListRepo_Pagination(t *testing.T) {
	f := setup(t)

	page := f.list(t, shop.EntityCategory, shop.CategoryFilters, "", pagination.PageParams{Page: 1, Size: 20})
	assert.Len(t, page.Items, 7)
	assert.Equal(t, pagination.Meta{CurrentPage: 1, ItemsPerPage: 20, TotalPages: 1, TotalItems: 7}, page.Meta)

	page = f.list(t, shop.EntityCategory, shop.CategoryFilters, "order_by=id", pagination.PageParams{Page: 2, Size: 3})
	assert.Equal(t, []any{int64(4), int64(5), int64(6)}, column(page.Items, "id"))
	assert.Equal(t, 3, page.Meta.TotalPages)

	page = f.list(t, shop.EntityCategory, shop.CategoryFilters, "", pagination.PageParams{Page: 2, Size: 3, GetAll: true})
	assert.Len(t, page.Items, 7)
	assert.Equal(t, pagination.Meta{CurrentPage: 1, ItemsPerPage: 7, TotalPages: 1, TotalItems: 7}, page.Meta)

	page = f.list(t, shop.EntityCategory, shop.CategoryFilters, "order_by=id", pagination.LimitOffsetParams{Offset: 5, Limit: 5})
	assert.Equal(t, []any{int64(6), int64(7)}, column(page.Items, "id"))
	assert.Equal(t, 2, page.Meta.CurrentPage)
}

func TestListRepo_Count(t *testing.T) {
	f := setup(t)
	def, _ := f.reg.Get(shop.EntityProduct)
	inst, err := filter.Parse(shop.ProductFilters, url.Values{"price__gt": {"5000"}})
	require.NoError(t, err)

	plan, err := domain.Prepare(def, domain.ListQuery{Filter: inst})
	require.NoError(t, err)
	n, err := f.repo.Count(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestListRepo_CanceledContext(t *testing.T) {
	f := setup(t)
	def, _ := f.reg.Get(shop.EntityProduct)
	plan, err := domain.Prepare(def, domain.ListQuery{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.repo.List(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLower(t *testing.T) {
	reg, err := shop.NewRegistry()
	require.NoError(t, err)
	order, _ := reg.Get(shop.EntityOrder)
	items, _ := order.Relation("items")
	addr, _ := order.Relation("shipping_address")

	expr, params := Lower(predicate.And{
		predicate.Compare{Field: "total_amount", Op: predicate.Gt, Value: int64(10)},
		predicate.Compare{Field: "deleted_at", Op: predicate.IsNull},
		predicate.Exists{Relation: items, Where: predicate.Compare{Field: "qty", Op: predicate.In, Value: []any{1, 2}}},
		predicate.Has{Relation: addr, Where: predicate.Compare{Field: "line_1", Op: predicate.ILike, Value: "%a.b%"}},
	})

	assert.Equal(t,
		`((row["total_amount"] != null && row["total_amount"] > params[0]) && row["deleted_at"] == null && `+
			`row["items"].exists(x1, x1["qty"] in params[1]) && `+
			`(row["shipping_address"] != null && (row["shipping_address"]["line_1"] != null && string(row["shipping_address"]["line_1"]).matches(params[2]))))`,
		expr)
	assert.Equal(t, []any{int64(10), []any{int64(1), int64(2)}, `(?s)(?i)^.*a\.b.*$`}, params)

	expr, params = Lower(predicate.And{})
	assert.Equal(t, "true", expr)
	assert.Empty(t, params)
}

func TestLikeToRegexp(t *testing.T) {
	assert.Equal(t, `(?s)^a.c$`, likeToRegexp("a_c", false))
	assert.Equal(t, `(?s)^50%$`, likeToRegexp(`50\%`, false))
}
