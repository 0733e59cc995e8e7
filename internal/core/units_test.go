package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBaseQuantity(t *testing.T) {
	tests := []struct {
		name string
		unit SaleUnit
		qty  string
		want string
	}{
		{"unit passes through", SaleUnitUnit, "3", "3"},
		{"dozen multiplies by twelve", SaleUnitDozen, "2", "24"},
		{"fractional dozen", SaleUnitDozen, "2.5", "30"},
		{"half dozen multiplies by six", SaleUnitHalfDozen, "3", "18"},
		{"bottle passes through", SaleUnitBottle, "4", "4"},
		{"glass consumes nothing directly", SaleUnitGlass, "7", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BaseQuantity(tt.unit, decimal.RequireFromString(tt.qty))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"BaseQuantity(%s, %s) = %s, want %s", tt.unit, tt.qty, got, tt.want)
		})
	}
}

func TestBottlesForGlasses(t *testing.T) {
	tests := []struct {
		glasses          int
		glassesPerBottle int
		want             int
	}{
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 2},
		{8, 4, 2},
		{9, 4, 3},
		{3, 6, 1},
		{0, 4, 0},
		{-2, 4, 0},
	}
	for _, tt := range tests {
		got := BottlesForGlasses(tt.glasses, tt.glassesPerBottle)
		assert.Equal(t, tt.want, got, "BottlesForGlasses(%d, %d)", tt.glasses, tt.glassesPerBottle)
	}
}

func TestDisplayPrice(t *testing.T) {
	base := decimal.RequireFromString("12")

	assert.True(t, DisplayPrice(SaleUnitUnit, base).Equal(base))
	assert.True(t, DisplayPrice(SaleUnitDozen, base).Equal(decimal.RequireFromString("144")))
	assert.True(t, DisplayPrice(SaleUnitHalfDozen, base).Equal(decimal.RequireFromString("72")))
	assert.True(t, DisplayPrice(SaleUnitBottle, base).Equal(base))
	assert.True(t, DisplayPrice(SaleUnitGlass, base).Equal(base))
}

func TestSaleUnitValid(t *testing.T) {
	for _, u := range []SaleUnit{SaleUnitUnit, SaleUnitDozen, SaleUnitHalfDozen, SaleUnitBottle, SaleUnitGlass} {
		assert.True(t, u.Valid(), "%s should be valid", u)
	}
	assert.False(t, SaleUnit("crate").Valid())
	assert.False(t, SaleUnit("").Valid())
}

func TestValidState(t *testing.T) {
	for _, s := range []string{StateTaken, StateInPreparation, StateReady, StateDelivered, StateCancelled} {
		assert.True(t, ValidState(s), "%s should be valid", s)
	}
	assert.False(t, ValidState("finished"))
	assert.False(t, ValidState(""))
}
