package shop

import (
	"querykit/internal/domain"
	"querykit/internal/domain/filter"
)

var CategoryNestedFilters = filter.NewSchema("CategoryNestedFilters").
	Leaf("id", filter.Int).
	Leaf("id__in", filter.Seq(filter.Int)).
	Leaf("id__nin", filter.Seq(filter.Int))

var CategoryFilters = CategoryNestedFilters.Extend("CategoryFilters").
	Leaf("name__ilike", filter.String).
	Search("search", "name")

var ProductFilters = filter.NewSchema("ProductFilters").
	Search("search", "name", "categories__name").
	Leaf("name__ilike", filter.String).
	Leaf("price__lt", filter.Int).
	Leaf("price__gt", filter.Int).
	Leaf("deleted_at__isnull", filter.Bool).
	Nested("categories", CategoryNestedFilters)

var AddressNestedFilters = filter.NewSchema("AddressNestedFilters").
	Leaf("city", filter.String).
	Leaf("zip_code", filter.String).
	Leaf("zip_code__in", filter.Seq(filter.String))

var OrderItemFilters = filter.NewSchema("OrderItemFilters").
	Leaf("qty", filter.Int).
	Leaf("qty__gte", filter.Int).
	Leaf("product_id", filter.Int)

var OrderFilters = filter.NewSchema("OrderFilters").
	Search("search", "shipping_address__line_1").
	Leaf("total_amount__lt", filter.Int).
	Leaf("total_amount__gt", filter.Int).
	Leaf("created_at__gte", filter.Time).
	Nested("shipping_address", AddressNestedFilters).
	Nested("items", OrderItemFilters)

// Resources lists the shop list endpoints.
func Resources() []domain.Resource {
	return []domain.Resource{
		{Path: "categories", Entity: EntityCategory, Filters: CategoryFilters, DefaultOrder: "id"},
		{Path: "products", Entity: EntityProduct, Filters: ProductFilters, DefaultOrder: "id"},
		{Path: "orders", Entity: EntityOrder, Filters: OrderFilters, DefaultOrder: "id"},
	}
}

// Schemas indexes every shop filter schema by name.
func Schemas() map[string]*filter.Schema {
	out := make(map[string]*filter.Schema)
	for _, s := range []*filter.Schema{
		CategoryNestedFilters, CategoryFilters, ProductFilters,
		AddressNestedFilters, OrderItemFilters, OrderFilters,
	} {
		out[s.Name()] = s
	}
	return out
}
