package bundled

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_EmbeddedDataset(t *testing.T) {
	cat, err := New().LoadCatalog(context.Background())
	require.NoError(t, err)

	assert.Len(t, cat.Collections, 6)
	assert.Len(t, cat.Products, 18)

	names := make([]string, len(cat.Collections))
	for i, c := range cat.Collections {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"PORSCHE", "FORMULA UNO", "FAST AND FURIOUS", "SKYLINE/SUPRA", "BMW", "MOST WANTED"}, names)
	assert.Equal(t, "skyline-supra", cat.Collections[3].Slug)
}

func TestLoadCatalog_FeaturedFirstInDocumentOrder(t *testing.T) {
	cat, err := New().LoadCatalog(context.Background())
	require.NoError(t, err)

	seenPlain := false
	var lastFeatured, lastPlain int64
	for _, p := range cat.Products {
		if p.Featured {
			assert.False(t, seenPlain, "featured %s after non-featured", p.ID)
			assert.Greater(t, p.Position, lastFeatured)
			lastFeatured = p.Position
			continue
		}
		seenPlain = true
		assert.Greater(t, p.Position, lastPlain)
		lastPlain = p.Position
	}
	assert.Equal(t, "1", cat.Products[0].ID)
}

func TestLoadCatalog_FieldsDecoded(t *testing.T) {
	cat, err := New().LoadCatalog(context.Background())
	require.NoError(t, err)

	var mcl38 bool
	for _, p := range cat.Products {
		if p.Name != "F1 MCL38 Driver Series" {
			continue
		}
		mcl38 = true
		assert.Equal(t, "FORMULA UNO", p.Collection)
		assert.Equal(t, int64(30000), p.BasePrice)
		assert.Equal(t, []string{"Rojo", "Negro", "Azul"}, p.Colors)
		assert.Equal(t, 24, p.Installments)
		assert.InDelta(t, 2.4, p.InstallmentSurcharge, 0.0001)
	}
	assert.True(t, mcl38)

	// The debut shirt ships without colors.
	assert.Empty(t, cat.Products[0].Colors)
}

func TestLoadCatalog_ReturnsCopies(t *testing.T) {
	src := New()
	a, err := src.LoadCatalog(context.Background())
	require.NoError(t, err)
	a.Products[0].Name = "changed"

	b, err := src.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "changed", b.Products[0].Name)
}

func TestParse(t *testing.T) {
	data := []byte(`
collections:
  - id: c1
    name: "FAST AND FURIOUS"
products:
  - id: a
    sizes: [M]
  - id: b
    sizes: [S]
    featured: true
`)
	cat, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "fast-and-furious", cat.Collections[0].Slug)
	assert.Equal(t, "b", cat.Products[0].ID)
	assert.Equal(t, int64(2), cat.Products[0].Position)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("products: [ {"))
	assert.Error(t, err)

	_, err = Parse([]byte("products:\n  - id: a\n"))
	assert.ErrorContains(t, err, "missing id or sizes")
}
