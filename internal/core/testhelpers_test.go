package core_test

import (
	"context"
	"os"
	"testing"

	"cenaculo-pos/internal/broadcast"
	"cenaculo-pos/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE audit_log, day_closes, notifications, sales, order_items, orders, products, categories, stations
		RESTART IDENTITY CASCADE;

		INSERT INTO stations (id, name, role) VALUES
			(1, 'Kitchen',  'kitchen'),
			(2, 'Grill',    'grill'),
			(3, 'Oven',     'oven'),
			(4, 'Drinks',   'drinks'),
			(5, 'Desserts', 'desserts');
		SELECT setval('stations_id_seq', 5);

		INSERT INTO categories (id, name, kind) VALUES
			(1, 'Food',     'food'),
			(2, 'Drinks',   'drink'),
			(3, 'Desserts', 'dessert');
		SELECT setval('categories_id_seq', 3);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// seedProduct inserts a product and returns its id.
func seedProduct(t *testing.T, pool *pgxpool.Pool, name string, price, stock string, unit core.SaleUnit, stationID int, baseProductID *int) int {
	t.Helper()
	var id int
	err := pool.QueryRow(context.Background(), `
		INSERT INTO products (name, price, stock, sale_unit, station_id, category_id, base_product_id)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		RETURNING id
	`, name, decimal.RequireFromString(price), decimal.RequireFromString(stock), unit, stationID, baseProductID).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed product %s: %v", name, err)
	}
	return id
}

// newOrderService wires an order service with real collaborators and a fresh
// hub, returning both so tests can subscribe to broadcasts.
func newOrderService(t *testing.T, pool *pgxpool.Pool) (core.OrderService, *broadcast.Hub) {
	t.Helper()
	hub := broadcast.NewHub(nil, nil)
	stock := core.NewStockKeeper(pool, 4)
	audit := core.NewAuditor(pool, nil)
	return core.NewOrderService(pool, stock, hub, audit, "test-phrase"), hub
}

func productStock(t *testing.T, pool *pgxpool.Pool, productID int) decimal.Decimal {
	t.Helper()
	var stock decimal.Decimal
	err := pool.QueryRow(context.Background(),
		"SELECT stock FROM products WHERE id = $1", productID).Scan(&stock)
	if err != nil {
		t.Fatalf("Failed to read stock for product %d: %v", productID, err)
	}
	return stock
}
