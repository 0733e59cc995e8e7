package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cenaculo-pos/internal/broadcast"
	"cenaculo-pos/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func newReportingService(t *testing.T, pool *pgxpool.Pool) core.ReportingService {
	t.Helper()
	hub := broadcast.NewHub(nil, nil)
	audit := core.NewAuditor(pool, nil)
	return core.NewReportingService(pool, hub, audit, nil, nil, "test-phrase", time.UTC, nil)
}

// seedSalesDay creates two cash orders and one transfer order through the
// real order service so the sales rows carry consistent totals.
func seedSalesDay(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	pizzaID := seedProduct(t, pool, "Pizza", "600", "50", core.SaleUnitUnit, 3, nil)
	sodaID := seedProduct(t, pool, "Soda", "500", "50", core.SaleUnitBottle, 4, nil)

	svc, _ := newOrderService(t, pool)
	ctx := context.Background()

	mustCreate := func(input core.CreateOrderInput) {
		if _, err := svc.CreateOrder(ctx, input); err != nil {
			t.Fatalf("seed order failed: %v", err)
		}
	}

	mustCreate(core.CreateOrderInput{
		CustomerName:  "Cash One",
		PaymentMethod: core.PaymentCash,
		Items:         []core.ItemInput{{ProductID: pizzaID, Quantity: decimal.NewFromInt(2)}}, // 1200
	})
	mustCreate(core.CreateOrderInput{
		CustomerName:  "Cash Two",
		PaymentMethod: core.PaymentCash,
		Items:         []core.ItemInput{{ProductID: sodaID, Quantity: decimal.NewFromInt(1)}}, // 500
	})
	mustCreate(core.CreateOrderInput{
		CustomerName:  "Transfer One",
		PaymentMethod: core.PaymentTransfer,
		Items: []core.ItemInput{
			{ProductID: pizzaID, Quantity: decimal.NewFromInt(1)},
			{ProductID: sodaID, Quantity: decimal.NewFromInt(2)},
		},
		Bundles: []core.BundleInput{
			{Name: "Party Combo", Price: decimal.NewFromInt(1400), Quantity: 1},
		},
	})
}

func dayWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

func TestSummarize_SplitsByPaymentMethod(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedSalesDay(t, pool)

	svc := newReportingService(t, pool)
	from, to := dayWindow()

	summary, err := svc.Summarize(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !summary.TotalCash.Equal(decimal.NewFromInt(1700)) {
		t.Errorf("expected cash total 1700, got %s", summary.TotalCash)
	}
	if !summary.TotalTransfers.Equal(decimal.NewFromInt(1400)) {
		t.Errorf("expected transfer total 1400, got %s", summary.TotalTransfers)
	}
	if !summary.TotalSales.Equal(decimal.NewFromInt(3100)) {
		t.Errorf("expected grand total 3100, got %s", summary.TotalSales)
	}
	if summary.OrderCount != 3 {
		t.Errorf("expected 3 orders, got %d", summary.OrderCount)
	}
}

func TestTopProducts_GroupsBundlesByName(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedSalesDay(t, pool)

	svc := newReportingService(t, pool)
	from, to := dayWindow()

	ranking, err := svc.TopProducts(context.Background(), from, to, 10)
	if err != nil {
		t.Fatalf("TopProducts failed: %v", err)
	}

	byName := make(map[string]core.ProductSales)
	for _, ps := range ranking {
		byName[ps.ProductName] = ps
	}

	combo, ok := byName["Party Combo"]
	if !ok {
		t.Fatal("bundle must appear in the ranking under its own name")
	}
	if !combo.IsBundle || !combo.Revenue.Equal(decimal.NewFromInt(1400)) {
		t.Errorf("expected bundle revenue 1400, got %s", combo.Revenue)
	}

	pizza, ok := byName["Pizza"]
	if !ok {
		t.Fatal("ordinary product must appear in the ranking")
	}
	// Only the two cash pizzas count as ordinary sale rows; the bundled pizza
	// was billed through the bundle.
	if !pizza.Revenue.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("expected pizza revenue 1200, got %s", pizza.Revenue)
	}
}

func TestListSales_JoinsCustomerName(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedSalesDay(t, pool)

	svc := newReportingService(t, pool)
	from, to := dayWindow()

	sales, err := svc.ListSales(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("expected 3 sale rows, got %d", len(sales))
	}
	for _, s := range sales {
		if s.CustomerName == "" {
			t.Error("every sale row must carry the customer name")
		}
	}
}

func TestCloseDay_OncePerDate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	seedSalesDay(t, pool)

	svc := newReportingService(t, pool)
	ctx := context.Background()
	today := time.Now().UTC()

	if _, err := svc.CloseDay(ctx, today, "wrong", "service"); !errors.Is(err, core.ErrBadClosePhrase) {
		t.Fatalf("expected ErrBadClosePhrase, got %v", err)
	}

	snapshot, err := svc.CloseDay(ctx, today, "test-phrase", "service")
	if err != nil {
		t.Fatalf("CloseDay failed: %v", err)
	}
	if !snapshot.TotalSales.Equal(decimal.NewFromInt(3100)) {
		t.Errorf("expected closed total 3100, got %s", snapshot.TotalSales)
	}
	if snapshot.OrderCount != 3 {
		t.Errorf("expected 3 orders in close, got %d", snapshot.OrderCount)
	}

	if _, err := svc.CloseDay(ctx, today, "test-phrase", "service"); !errors.Is(err, core.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed on second close, got %v", err)
	}

	stored, err := svc.GetDayClose(ctx, today)
	if err != nil {
		t.Fatalf("GetDayClose failed: %v", err)
	}
	if stored.ID != snapshot.ID {
		t.Errorf("GetDayClose returned a different snapshot")
	}
}

func TestNotifications_UnreadFeedAndAck(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	pizzaID := seedProduct(t, pool, "Pizza", "600", "10", core.SaleUnitUnit, 3, nil)
	orders, _ := newOrderService(t, pool)
	ctx := context.Background()

	if _, err := orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerName:  "Eva",
		PaymentMethod: core.PaymentCash,
		Items:         []core.ItemInput{{ProductID: pizzaID, Quantity: decimal.NewFromInt(1)}},
	}); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	svc := core.NewNotificationService(pool)

	unread, err := svc.ListUnread(ctx, "oven")
	if err != nil {
		t.Fatalf("ListUnread failed: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread oven notification, got %d", len(unread))
	}

	if err := svc.MarkRead(ctx, unread[0].ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	// Acknowledging again, and acknowledging a missing id, are both no-ops.
	if err := svc.MarkRead(ctx, unread[0].ID); err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}
	if err := svc.MarkRead(ctx, 99999); err != nil {
		t.Fatalf("MarkRead on missing id failed: %v", err)
	}

	unread, _ = svc.ListUnread(ctx, "oven")
	if len(unread) != 0 {
		t.Errorf("expected empty feed after ack, got %d", len(unread))
	}
}
