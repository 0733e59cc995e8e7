package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockKeeper gatekeeps every inventory mutation. The TX-scoped methods work
// within a caller-provided transaction so stock changes commit atomically with
// the order and sale rows they belong to; each one locks the product row with
// FOR UPDATE, so concurrent orders racing on the last units serialize at the
// database instead of double-spending.
type StockKeeper interface {
	// ValidateAvailabilityTx locks the product row and checks that its stock
	// covers the requested quantity after sale-unit conversion. Glass-sold
	// products always pass: they have no stock of their own.
	ValidateAvailabilityTx(ctx context.Context, tx pgx.Tx, productID int, qty decimal.Decimal) (*Product, error)
	// ReserveTx decrements stock by the converted quantity. No-op for glass.
	ReserveTx(ctx context.Context, tx pgx.Tx, product *Product, qty decimal.Decimal) error
	// DrawBottlesTx resolves the glass product's base bottle, locks it, and
	// decrements whole bottles: ceil(glassCount / glassesPerBottle).
	DrawBottlesTx(ctx context.Context, tx pgx.Tx, glassProductID, glassCount int) (*BottleDraw, error)

	// ValidateAvailability is the standalone pre-flight variant used by read
	// paths; order creation must rely on the TX-scoped check instead.
	ValidateAvailability(ctx context.Context, productID int, qty decimal.Decimal) error
}

type stockKeeper struct {
	pool             *pgxpool.Pool
	glassesPerBottle int
}

// NewStockKeeper constructs a StockKeeper. glassesPerBottle below 1 falls
// back to the conventional 4 glasses per bottle.
func NewStockKeeper(pool *pgxpool.Pool, glassesPerBottle int) StockKeeper {
	if glassesPerBottle < 1 {
		glassesPerBottle = 4
	}
	return &stockKeeper{pool: pool, glassesPerBottle: glassesPerBottle}
}

func (s *stockKeeper) ValidateAvailabilityTx(ctx context.Context, tx pgx.Tx, productID int, qty decimal.Decimal) (*Product, error) {
	var p Product
	err := tx.QueryRow(ctx, `
		SELECT id, station_id, category_id, name, COALESCE(description, ''), price, stock,
		       sale_unit, base_product_id, active, created_at, updated_at
		FROM products
		WHERE id = $1 AND active = true
		FOR UPDATE
	`, productID).Scan(
		&p.ID, &p.StationID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.SaleUnit, &p.BaseProductID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}

	// Glass products draw from their parent bottle via DrawBottlesTx; their
	// own stock column is not consulted.
	if p.SaleUnit == SaleUnitGlass || p.BaseProductID != nil {
		return &p, nil
	}

	required := BaseQuantity(p.SaleUnit, qty)
	if p.Stock.LessThan(required) {
		return nil, fmt.Errorf("%w for %s: available %s, requested %s",
			ErrInsufficientStock, p.Name, p.Stock.String(), required.String())
	}
	return &p, nil
}

func (s *stockKeeper) ReserveTx(ctx context.Context, tx pgx.Tx, product *Product, qty decimal.Decimal) error {
	if product.SaleUnit == SaleUnitGlass || product.BaseProductID != nil {
		return nil
	}

	toDeduct := BaseQuantity(product.SaleUnit, qty)
	if toDeduct.IsZero() {
		return nil
	}

	_, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2
	`, toDeduct, product.ID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock for product %s: %w", product.Name, err)
	}
	return nil
}

func (s *stockKeeper) DrawBottlesTx(ctx context.Context, tx pgx.Tx, glassProductID, glassCount int) (*BottleDraw, error) {
	var baseID *int
	var glassName string
	err := tx.QueryRow(ctx,
		"SELECT base_product_id, name FROM products WHERE id = $1",
		glassProductID,
	).Scan(&baseID, &glassName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("glass product %d: %w", glassProductID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to fetch glass product %d: %w", glassProductID, err)
	}
	if baseID == nil {
		return nil, fmt.Errorf("%w: glass product %s", ErrMissingBaseProduct, glassName)
	}

	var bottleID int
	var bottleName string
	var bottleStock decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT id, name, stock FROM products
		WHERE id = $1 AND active = true
		FOR UPDATE
	`, *baseID).Scan(&bottleID, &bottleName, &bottleStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: glass product %s", ErrMissingBaseProduct, glassName)
		}
		return nil, fmt.Errorf("failed to lock bottle product %d: %w", *baseID, err)
	}

	needed := BottlesForGlasses(glassCount, s.glassesPerBottle)
	neededDec := decimal.NewFromInt(int64(needed))
	if bottleStock.LessThan(neededDec) {
		return nil, fmt.Errorf("%w for %s: available %s bottles, need %d",
			ErrInsufficientStock, bottleName, bottleStock.String(), needed)
	}

	var remaining decimal.Decimal
	err = tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2
		RETURNING stock
	`, neededDec, bottleID).Scan(&remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to draw bottles for %s: %w", bottleName, err)
	}

	return &BottleDraw{
		BottleProductID: bottleID,
		BottleName:      bottleName,
		BottlesDrawn:    needed,
		RemainingStock:  remaining,
		LowStock:        remaining.LessThanOrEqual(decimal.NewFromInt(1)),
	}, nil
}

func (s *stockKeeper) ValidateAvailability(ctx context.Context, productID int, qty decimal.Decimal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.ValidateAvailabilityTx(ctx, tx, productID, qty); err != nil {
		return err
	}
	// Read-only check; nothing to commit.
	return nil
}
