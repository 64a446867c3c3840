// Package shop is the example catalog served by querykit: categories,
// products, orders with their shipping address and items.
package shop

import (
	"time"

	"querykit/internal/metadata"
)

// Timestamps are carried by every shop entity.
type Timestamps struct {
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at"`
}

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Timestamps
}

type Product struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Price int64  `db:"price" json:"price"`
	Timestamps

	Categories []Category `rel:"categories,target=category,local=id,foreign=id,through=products__categories:product_id:category_id" json:"categories,omitempty"`
}

// ProductCategory is a row of the products/categories association table.
type ProductCategory struct {
	ProductID  int64 `db:"product_id"`
	CategoryID int64 `db:"category_id"`
}

type Address struct {
	ID      int64   `db:"id" json:"id"`
	Line1   string  `db:"line_1" json:"line_1"`
	Line2   *string `db:"line_2" json:"line_2"`
	City    string  `db:"city" json:"city"`
	State   *string `db:"state" json:"state"`
	Country string  `db:"country" json:"country"`
	ZipCode string  `db:"zip_code" json:"zip_code"`
	Timestamps
}

type Order struct {
	ID                int64 `db:"id" json:"id"`
	TotalAmount       int64 `db:"total_amount" json:"total_amount"`
	ShippingAddressID int64 `db:"shipping_address_id" json:"shipping_address_id"`
	Timestamps

	ShippingAddress *Address    `rel:"shipping_address,target=address,local=shipping_address_id,foreign=id" json:"shipping_address,omitempty"`
	Items           []OrderItem `rel:"items,target=order_item,local=id,foreign=order_id,many" json:"items,omitempty"`
}

type OrderItem struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Qty       int64 `db:"qty" json:"qty"`
	Timestamps

	Product *Product `rel:"product,target=product,local=product_id,foreign=id" json:"product,omitempty"`
}

// Entity names.
const (
	EntityCategory  = "category"
	EntityProduct   = "product"
	EntityAddress   = "address"
	EntityOrder     = "order"
	EntityOrderItem = "order_item"
)

// Tables.
const (
	TableCategories        = "categories"
	TableProducts          = "products"
	TableProductCategories = "products__categories"
	TableAddresses         = "addresses"
	TableOrders            = "orders"
	TableOrderItems        = "order_items"
)

// NewRegistry describes the shop entities and links their relations.
func NewRegistry() (*metadata.Registry, error) {
	reg := metadata.NewRegistry()
	reg.Register(
		metadata.Inspect(Category{}, EntityCategory, TableCategories),
		metadata.Inspect(Product{}, EntityProduct, TableProducts),
		metadata.Inspect(Address{}, EntityAddress, TableAddresses),
		metadata.Inspect(Order{}, EntityOrder, TableOrders),
		metadata.Inspect(OrderItem{}, EntityOrderItem, TableOrderItems),
	)
	if err := reg.Link(); err != nil {
		return nil, err
	}
	return reg, nil
}
