package shop

import (
	_ "embed"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// SchemaStatements returns the PostgreSQL DDL of the shop tables, one statement each.
func SchemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// DropStatements drops the shop tables, children first.
func DropStatements() []string {
	tables := []string{
		TableOrderItems, TableOrders, TableAddresses,
		TableProductCategories, TableProducts, TableCategories,
	}
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = "DROP TABLE IF EXISTS " + t
	}
	return out
}
