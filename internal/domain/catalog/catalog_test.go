package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_QuantitiesAndAliases(t *testing.T) {
	c := New(DefaultItems())

	matches := c.Find("I'd like to buy 2 protein powder and some creatine")
	require.Len(t, matches, 2)

	bySKU := map[string]int{}
	for _, m := range matches {
		bySKU[m.Item.SKU] = m.Quantity
	}
	assert.Equal(t, 2, bySKU["SUP-WHEY"])
	assert.Equal(t, 1, bySKU["SUP-CREA"])
}

func TestFind_WordBoundaries(t *testing.T) {
	c := New(DefaultItems())

	assert.Empty(t, c.Find("please format my plan"))
	assert.Len(t, c.Find("order 3x yoga mat"), 1)
}

func TestReserve_AllOrNothing(t *testing.T) {
	c := New([]Item{
		{SKU: "a", Name: "A", Stock: 5},
		{SKU: "b", Name: "B", Stock: 1},
	})

	err := c.Reserve(map[string]int{"A": 2, "B": 3})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	a, err := c.Get("A")
	require.NoError(t, err)
	assert.Equal(t, 5, a.Stock)

	require.NoError(t, c.Reserve(map[string]int{"A": 2, "B": 1}))
	a, _ = c.Get("A")
	b, _ := c.Get("B")
	assert.Equal(t, 3, a.Stock)
	assert.Equal(t, 0, b.Stock)

	c.Release(map[string]int{"A": 2, "B": 1, "MISSING": 4})
	a, _ = c.Get("A")
	b, _ = c.Get("B")
	assert.Equal(t, 5, a.Stock)
	assert.Equal(t, 1, b.Stock)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `items:
  - sku: sup-zinc
    name: Zinc Tablets
    category: supplements
    price: "9.95"
    stock: 12
    aliases: [zinc]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	item, err := c.Get("SUP-ZINC")
	require.NoError(t, err)
	assert.Equal(t, "9.95", item.Price.StringFixed(2))
	assert.Equal(t, []string{"supplements"}, c.Categories())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("items:\n  - sku: x\n    name: X\n    price: abc\n"), 0o600))
	_, err := Load(bad)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.List(), len(DefaultItems()))
}
