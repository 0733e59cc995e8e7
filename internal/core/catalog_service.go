package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductInput carries the fields for creating a product.
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Stock         decimal.Decimal
	SaleUnit      SaleUnit
	StationID     int
	CategoryID    *int
	BaseProductID *int
}

// ProductUpdate carries a partial update; nil fields are left unchanged.
type ProductUpdate struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Stock         *decimal.Decimal
	SaleUnit      *SaleUnit
	StationID     *int
	CategoryID    *int
	BaseProductID *int
	Active        *bool
}

// CatalogService manages the product catalog and its fixed dimensions
// (stations, categories). Products are soft-deleted so historical sale and
// order rows keep resolving.
type CatalogService interface {
	ListStations(ctx context.Context) ([]Station, error)
	ListCategories(ctx context.Context) ([]Category, error)

	CreateProduct(ctx context.Context, input ProductInput, actingRole string) (*Product, error)
	GetProduct(ctx context.Context, productID int) (*Product, error)
	UpdateProduct(ctx context.Context, productID int, update ProductUpdate, actingRole string) (*Product, error)
	DeactivateProduct(ctx context.Context, productID int, actingRole string) error

	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	ListProductsByStation(ctx context.Context, stationID int) ([]Product, error)
}

type catalogService struct {
	pool  *pgxpool.Pool
	audit Auditor
}

func NewCatalogService(pool *pgxpool.Pool, audit Auditor) CatalogService {
	return &catalogService{pool: pool, audit: audit}
}

const productColumns = `id, name, COALESCE(description, ''), price, stock, sale_unit, station_id, category_id, base_product_id, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.SaleUnit, &p.StationID,
		&p.CategoryID, &p.BaseProductID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *catalogService) ListStations(ctx context.Context) ([]Station, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, role, active, created_at FROM stations WHERE active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []Station
	for rows.Next() {
		var st Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Role, &st.Active, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, kind, active FROM categories WHERE active ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput, actingRole string) (*Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("product name is required")
	}
	if !input.SaleUnit.Valid() {
		return nil, fmt.Errorf("unknown sale unit %q", input.SaleUnit)
	}
	if input.Price.IsNegative() || input.Stock.IsNegative() {
		return nil, fmt.Errorf("price and stock must not be negative")
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM stations WHERE id = $1)",
		input.StationID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check station %d: %w", input.StationID, err)
	}
	if !exists {
		return nil, fmt.Errorf("station %d: %w", input.StationID, ErrStationNotFound)
	}

	product, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock, sale_unit, station_id, category_id, base_product_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		input.Name, input.Description, input.Price, input.Stock, input.SaleUnit,
		input.StationID, input.CategoryID, input.BaseProductID))
	if err != nil {
		return nil, fmt.Errorf("failed to insert product %s: %w", input.Name, err)
	}

	s.audit.Record(ctx, actingRole, "CREATE_PRODUCT", "products", product.ID, nil, product)
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID int) (*Product, error) {
	product, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID int, update ProductUpdate, actingRole string) (*Product, error) {
	if update.SaleUnit != nil && !update.SaleUnit.Valid() {
		return nil, fmt.Errorf("unknown sale unit %q", *update.SaleUnit)
	}

	before, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.Stock != nil {
		add("stock", *update.Stock)
	}
	if update.SaleUnit != nil {
		add("sale_unit", *update.SaleUnit)
	}
	if update.StationID != nil {
		add("station_id", *update.StationID)
	}
	if update.CategoryID != nil {
		add("category_id", *update.CategoryID)
	}
	if update.BaseProductID != nil {
		add("base_product_id", *update.BaseProductID)
	}
	if update.Active != nil {
		add("active", *update.Active)
	}

	args = append(args, productID)
	q := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), productColumns)

	after, err := scanProduct(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}

	s.audit.Record(ctx, actingRole, "UPDATE_PRODUCT", "products", productID, before, after)
	return after, nil
}

func (s *catalogService) DeactivateProduct(ctx context.Context, productID int, actingRole string) error {
	before, err := s.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET active = false, updated_at = NOW() WHERE id = $1",
		productID)
	if err != nil {
		return fmt.Errorf("failed to deactivate product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}

	s.audit.Record(ctx, actingRole, "DEACTIVATE_PRODUCT", "products", productID,
		map[string]any{"active": before.Active}, map[string]any{"active": false})
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	q := "SELECT " + productColumns + " FROM products"
	if activeOnly {
		q += " WHERE active"
	}
	q += " ORDER BY name"
	return s.queryProducts(ctx, q)
}

func (s *catalogService) ListProductsByStation(ctx context.Context, stationID int) ([]Product, error) {
	return s.queryProducts(ctx,
		"SELECT "+productColumns+" FROM products WHERE station_id = $1 AND active ORDER BY name",
		stationID)
}

func (s *catalogService) queryProducts(ctx context.Context, q string, args ...any) ([]Product, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
