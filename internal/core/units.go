package core

import "github.com/shopspring/decimal"

// Unit conversion policy. Prices and stock are stored per base unit; sale
// units are a front-of-house convention translated here and nowhere else.

var (
	perDozen     = decimal.NewFromInt(12)
	perHalfDozen = decimal.NewFromInt(6)
)

// BaseQuantity converts a quantity expressed in a product's sale unit into
// the base-inventory quantity to reserve. Glass-sold products have no stock
// of their own and convert to zero; their inventory effect happens through
// BottlesForGlasses against the parent bottle.
func BaseQuantity(unit SaleUnit, qty decimal.Decimal) decimal.Decimal {
	switch unit {
	case SaleUnitDozen:
		return qty.Mul(perDozen)
	case SaleUnitHalfDozen:
		return qty.Mul(perHalfDozen)
	case SaleUnitGlass:
		return decimal.Zero
	default: // unit, bottle
		return qty
	}
}

// BottlesForGlasses returns how many whole bottles must be opened to pour
// glassCount glasses: ceil(glassCount / glassesPerBottle).
func BottlesForGlasses(glassCount, glassesPerBottle int) int {
	if glassCount <= 0 {
		return 0
	}
	return (glassCount + glassesPerBottle - 1) / glassesPerBottle
}

// DisplayPrice quotes the effective price for one sale unit. The stored price
// is always per base unit, so a dozen-sold product displays at price × 12.
func DisplayPrice(unit SaleUnit, basePrice decimal.Decimal) decimal.Decimal {
	switch unit {
	case SaleUnitDozen:
		return basePrice.Mul(perDozen)
	case SaleUnitHalfDozen:
		return basePrice.Mul(perHalfDozen)
	default:
		return basePrice
	}
}
