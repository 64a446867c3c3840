package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFlattenCmd(t *testing.T) {
	out, err := run(t, "flatten")
	require.NoError(t, err)
	assert.Contains(t, out, "OrderFilters\n")

	out, err = run(t, "flatten", "OrderFilters")
	require.NoError(t, err)
	assert.Contains(t, out, "shipping_address__zip_code__in")
	assert.Contains(t, out, "items__qty__gte")
	assert.Equal(t, 1, strings.Count(out, "\nsearch "))

	_, err = run(t, "flatten", "Nope")
	assert.EqualError(t, err, `unknown filter schema "Nope"`)
}

func TestSQLCmd(t *testing.T) {
	out, err := run(t, "sql", "products", "price__lt=3000&size=10&page=2")
	require.NoError(t, err)
	assert.Contains(t, out, "FROM products AS t0 WHERE")
	assert.Contains(t, out, "t0.price < $1")
	assert.Contains(t, out, "ORDER BY t0.id ASC LIMIT 10 OFFSET 10;")
	assert.Contains(t, out, "SELECT COUNT(*) FROM (")

	_, err = run(t, "sql", "customers")
	assert.EqualError(t, err, `unknown resource "customers"`)

	_, err = run(t, "sql", "products", "size=abc")
	assert.Error(t, err)
}
