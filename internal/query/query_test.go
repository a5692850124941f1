package query

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

func TestNew_Defaults(t *testing.T) {
	q := New()
	assert.Equal(t, PriceRange{Min: 0, Max: 50000}, q.PriceRange)
	assert.True(t, q.IsDefault())
}

func TestToggle_AddsAndRemoves(t *testing.T) {
	q := New().ToggleSize("M").ToggleSize("S").ToggleSize("M").ToggleSize("XL")
	assert.Equal(t, []string{"S", "XL"}, q.Sizes)

	q = q.ToggleColor("Rojo").ToggleColor("Azul")
	assert.Equal(t, []string{"Azul", "Rojo"}, q.Colors)

	q = q.ToggleCollection("BMW").ToggleCollection("BMW")
	assert.Empty(t, q.Collections)
}

func TestToggle_IgnoresBlank(t *testing.T) {
	q := New().ToggleSize("  ")
	assert.Empty(t, q.Sizes)
	assert.True(t, q.IsDefault())
}

func TestToggle_DoesNotMutateReceiver(t *testing.T) {
	base := New().ToggleSize("M")
	next := base.ToggleSize("S")

	assert.Equal(t, []string{"M"}, base.Sizes)
	assert.Equal(t, []string{"M", "S"}, next.Sizes)

	removed := next.ToggleSize("M")
	assert.Equal(t, []string{"M", "S"}, next.Sizes)
	assert.Equal(t, []string{"S"}, removed.Sizes)
}

func TestCleared_KeepsTerm(t *testing.T) {
	q := New().WithTerm("supra").ToggleCollection("BMW").
		WithPriceRange(PriceRange{Min: 100, Max: 200})

	c := q.Cleared()
	assert.Equal(t, "supra", c.Term)
	assert.False(t, c.HasFacets())
	assert.Equal(t, DefaultPriceRange(), c.PriceRange)
}

func TestWithPriceRange_NoClamp(t *testing.T) {
	q := New().WithPriceRange(PriceRange{Min: 0, Max: 90000})
	assert.Equal(t, int64(90000), q.PriceRange.Max)
	assert.False(t, q.IsDefault())
}

func TestIsDefault(t *testing.T) {
	assert.True(t, New().WithTerm("   ").IsDefault())
	assert.False(t, New().WithTerm("bmw").IsDefault())
	assert.False(t, New().ToggleColor("Negro").IsDefault())
	assert.False(t, Query{}.IsDefault(), "zero value has a [0,0] range")
}

func TestNormalize(t *testing.T) {
	q := Query{Sizes: []string{"M", "S", "M", " ", "L"}, Colors: []string{""}}.Normalize()
	assert.Equal(t, []string{"L", "M", "S"}, q.Sizes)
	assert.Nil(t, q.Colors)
}

func TestEqual(t *testing.T) {
	a := New().ToggleSize("S").ToggleSize("M")
	b := New().ToggleSize("M").ToggleSize("S")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(b.WithTerm("x")))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, New().Validate())
	assert.ErrorIs(t, New().WithPriceRange(PriceRange{Min: -1, Max: 10}).Validate(), ErrNegativePrice)
	assert.ErrorIs(t, New().WithPriceRange(PriceRange{Min: 10, Max: 1}).Validate(), ErrInvertedRange)
}

func TestPriceRange_ContainsInclusive(t *testing.T) {
	r := PriceRange{Min: 100, Max: 200}
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(200))
	assert.False(t, r.Contains(99))
	assert.False(t, r.Contains(201))
}

func TestFromValues(t *testing.T) {
	v := url.Values{
		"q":          {"shirt"},
		"size":       {"M", "S", "M"},
		"collection": {"F1"},
		"max_price":  {"15000"},
	}
	q, err := FromValues(v)
	require.NoError(t, err)

	assert.Equal(t, "shirt", q.Term)
	assert.Equal(t, []string{"M", "S"}, q.Sizes)
	assert.Equal(t, []string{"F1"}, q.Collections)
	assert.Equal(t, PriceRange{Min: 0, Max: 15000}, q.PriceRange)
}

func TestFromValues_Errors(t *testing.T) {
	_, err := FromValues(url.Values{"min_price": {"abc"}})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = FromValues(url.Values{"min_price": {"500"}, "max_price": {"100"}})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
