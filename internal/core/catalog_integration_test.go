package core_test

import (
	"context"
	"errors"
	"testing"

	"cenaculo-pos/internal/core"

	"github.com/shopspring/decimal"
)

func TestCatalog_ProductLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCatalogService(pool, core.NewAuditor(pool, nil))
	ctx := context.Background()

	categoryID := 1
	product, err := svc.CreateProduct(ctx, core.ProductInput{
		Name:       "Empanada",
		Price:      decimal.NewFromInt(12),
		Stock:      decimal.NewFromInt(120),
		SaleUnit:   core.SaleUnitDozen,
		StationID:  1,
		CategoryID: &categoryID,
	}, "service")
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if !product.Active {
		t.Error("new products must start active")
	}

	// Partial update: only the price moves.
	newPrice := decimal.NewFromInt(15)
	updated, err := svc.UpdateProduct(ctx, product.ID, core.ProductUpdate{Price: &newPrice}, "service")
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if !updated.Price.Equal(newPrice) {
		t.Errorf("expected price 15, got %s", updated.Price)
	}
	if updated.Name != "Empanada" || !updated.Stock.Equal(decimal.NewFromInt(120)) {
		t.Error("fields absent from the update must be unchanged")
	}

	if err := svc.DeactivateProduct(ctx, product.ID, "service"); err != nil {
		t.Fatalf("DeactivateProduct failed: %v", err)
	}

	// Soft deleted: gone from active listings, still fetchable by id.
	active, err := svc.ListProducts(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range active {
		if p.ID == product.ID {
			t.Error("deactivated product must not appear in active listing")
		}
	}
	got, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct after deactivation failed: %v", err)
	}
	if got.Active {
		t.Error("product must be inactive after deactivation")
	}
}

func TestCatalog_CreateProductValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCatalogService(pool, core.NewAuditor(pool, nil))
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, core.ProductInput{
		Name: "Ghost", Price: decimal.NewFromInt(10), SaleUnit: core.SaleUnitUnit, StationID: 99,
	}, "service")
	if !errors.Is(err, core.ErrStationNotFound) {
		t.Fatalf("expected ErrStationNotFound, got %v", err)
	}

	_, err = svc.CreateProduct(ctx, core.ProductInput{
		Name: "", Price: decimal.NewFromInt(10), SaleUnit: core.SaleUnitUnit, StationID: 1,
	}, "service")
	if err == nil {
		t.Fatal("expected error for empty name")
	}

	_, err = svc.CreateProduct(ctx, core.ProductInput{
		Name: "Odd", Price: decimal.NewFromInt(10), SaleUnit: core.SaleUnit("crate"), StationID: 1,
	}, "service")
	if err == nil {
		t.Fatal("expected error for unknown sale unit")
	}
}

func TestCatalog_StationsAndCategoriesSeeded(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCatalogService(pool, core.NewAuditor(pool, nil))
	ctx := context.Background()

	stations, err := svc.ListStations(ctx)
	if err != nil {
		t.Fatalf("ListStations failed: %v", err)
	}
	if len(stations) != 5 {
		t.Fatalf("expected 5 stations, got %d", len(stations))
	}
	roles := make(map[string]bool)
	for _, s := range stations {
		roles[s.Role] = true
	}
	for _, want := range []string{"kitchen", "grill", "oven", "drinks", "desserts"} {
		if !roles[want] {
			t.Errorf("missing station role %s", want)
		}
	}

	categories, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(categories) != 3 {
		t.Errorf("expected 3 categories, got %d", len(categories))
	}
}

func TestAuditor_RecordsAndFilters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	audit := core.NewAuditor(pool, nil)
	svc := core.NewCatalogService(pool, audit)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, core.ProductInput{
		Name: "Pizza", Price: decimal.NewFromInt(600), SaleUnit: core.SaleUnitUnit, StationID: 3,
	}, "service")
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	newPrice := decimal.NewFromInt(650)
	if _, err := svc.UpdateProduct(ctx, product.ID, core.ProductUpdate{Price: &newPrice}, "dispatch"); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	entries, err := audit.Recent(ctx, core.AuditFilter{Role: "dispatch"})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 dispatch entry, got %d", len(entries))
	}
	if entries[0].Action != "UPDATE_PRODUCT" {
		t.Errorf("expected UPDATE_PRODUCT, got %s", entries[0].Action)
	}
	if len(entries[0].Before) == 0 || len(entries[0].After) == 0 {
		t.Error("update entries must carry before and after snapshots")
	}

	all, err := audit.Recent(ctx, core.AuditFilter{Table: "products"})
	if err != nil {
		t.Fatalf("Recent by table failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 product entries, got %d", len(all))
	}
}
