package shop

import "time"

// Dataset is a consistent set of shop rows.
type Dataset struct {
	Categories        []Category
	Products          []Product
	ProductCategories []ProductCategory
	Addresses         []Address
	Orders            []Order
	OrderItems        []OrderItem
}

// Tables returns the rows grouped by table, parents before children.
func (d Dataset) Tables() []TableRows {
	return []TableRows{
		{Table: TableCategories, Rows: anySlice(d.Categories)},
		{Table: TableProducts, Rows: anySlice(d.Products)},
		{Table: TableProductCategories, Rows: anySlice(d.ProductCategories)},
		{Table: TableAddresses, Rows: anySlice(d.Addresses)},
		{Table: TableOrders, Rows: anySlice(d.Orders)},
		{Table: TableOrderItems, Rows: anySlice(d.OrderItems)},
	}
}

// TableRows are the rows of one table.
type TableRows struct {
	Table string
	Rows  []any
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}

var fixtureEpoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func stamp(i int) Timestamps {
	at := fixtureEpoch.Add(time.Duration(i) * time.Hour)
	return Timestamps{CreatedAt: at, UpdatedAt: at}
}

// Fixtures returns the demo dataset: 7 categories, 6 products and 4 orders.
func Fixtures() Dataset {
	var d Dataset

	for i, name := range []string{"kitchen", "garden", "entertainment", "rest", "kids", "car", "other"} {
		d.Categories = append(d.Categories, Category{ID: int64(i + 1), Name: name, Timestamps: stamp(i)})
	}

	products := []struct {
		name       string
		price      int64
		categories []int64
	}{
		{"Frying Pan", 2000, []int64{1}},
		{"Toaster", 3500, []int64{1}},
		{"Lazy Bag", 5500, []int64{4}},
		{"Table Soccer", 25199, []int64{3, 5}},
		{"Car Washing Machine", 34399, []int64{6}},
		{"Washing Machine", 52999, []int64{7}},
	}
	for i, p := range products {
		id := int64(i + 1)
		d.Products = append(d.Products, Product{ID: id, Name: p.name, Price: p.price, Timestamps: stamp(i)})
		for _, c := range p.categories {
			d.ProductCategories = append(d.ProductCategories, ProductCategory{ProductID: id, CategoryID: c})
		}
	}

	state := "CA"
	orders := []struct {
		total int64
		line  string
		items [][2]int64 // product id, qty
	}{
		{4000, "Main Street 1", [][2]int64{{1, 2}}},
		{5500, "Main Street 1", [][2]int64{{1, 1}, {2, 1}}},
		{30699, "West Street 1", [][2]int64{{3, 1}, {4, 1}}},
		{52999, "Main Street 1", [][2]int64{{6, 1}}},
	}
	itemID := int64(0)
	for i, o := range orders {
		id := int64(i + 1)
		d.Addresses = append(d.Addresses, Address{
			ID: id, Line1: o.line, City: "San Diego", State: &state,
			Country: "US", ZipCode: "90123", Timestamps: stamp(i),
		})
		d.Orders = append(d.Orders, Order{ID: id, TotalAmount: o.total, ShippingAddressID: id, Timestamps: stamp(i)})
		for _, it := range o.items {
			itemID++
			d.OrderItems = append(d.OrderItems, OrderItem{
				ID: itemID, OrderID: id, ProductID: it[0], Qty: it[1], Timestamps: stamp(i),
			})
		}
	}
	return d
}
