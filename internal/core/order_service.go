package core

import (
	"context"
	"errors"
	"fmt"

	"cenaculo-pos/internal/broadcast"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CreateOrderInput is the full input for creating an order. ProofURL is set
// by the transport layer after uploading the payment proof; Bundles, when
// present, replace the item prices for billing.
type CreateOrderInput struct {
	CustomerName  string
	AttendingRole string
	PaymentMethod PaymentMethod
	ProofURL      *string
	Items         []ItemInput
	Bundles       []BundleInput
}

// OrderService owns the order lifecycle: creation with stock reservation,
// state transitions, bottle draw-downs, and the read projections used by the
// station, dispatch, and sales screens. Every multi-row mutation runs in one
// transaction; broadcast events are published only after the commit, so a
// rolled-back order never produces a station alert.
type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	// AdvanceState moves an order to any valid state label. Transitions to
	// ready notify dispatch; transitions to delivered stamp the delivery time
	// and notify the originating attending role.
	AdvanceState(ctx context.Context, orderID int, newState, actingRole string) error
	// MarkDelivered is the dispatch shortcut for AdvanceState(…, delivered).
	MarkDelivered(ctx context.Context, orderID int, actingRole string) error
	// DrawBottleForGlassLine decrements bottle stock to serve a glass line and
	// raises a low-stock warning to the drinks station when ≤ 1 bottle remains.
	DrawBottleForGlassLine(ctx context.Context, orderID, glassProductID, glassCount int, actingRole string) (*BottleDraw, error)

	ListPendingByStation(ctx context.Context, stationID int) ([]Order, error)
	ListReadyForDispatch(ctx context.Context) ([]Order, error)
	ListDeliveredHistory(ctx context.Context, limit int) ([]Order, error)

	// Reset wipes all order, sale, notification, and day-close history and
	// zeroes product stock. Gated by the configured close phrase.
	Reset(ctx context.Context, phrase, actingRole string) error
}

type orderService struct {
	pool        *pgxpool.Pool
	stock       StockKeeper
	hub         *broadcast.Hub
	audit       Auditor
	closePhrase string
}

// NewOrderService wires the order engine with its collaborators.
func NewOrderService(pool *pgxpool.Pool, stock StockKeeper, hub *broadcast.Hub, audit Auditor, closePhrase string) OrderService {
	return &orderService{pool: pool, stock: stock, hub: hub, audit: audit, closePhrase: closePhrase}
}

// pendingEvent is a broadcast held back until the transaction commits.
type pendingEvent struct {
	role  string
	event broadcast.Event
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("order must have at least one item")
	}
	if input.PaymentMethod != PaymentCash && input.PaymentMethod != PaymentTransfer {
		return nil, fmt.Errorf("unknown payment method %q", input.PaymentMethod)
	}
	if input.AttendingRole == "" {
		input.AttendingRole = broadcast.RoleService
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Validate every line before any mutation. The product rows stay locked
	// until commit, so the stock seen here cannot be spent by a racing order.
	type resolvedItem struct {
		product   *Product
		quantity  decimal.Decimal
		unitPrice decimal.Decimal // effective per-sale-unit price
		lineTotal decimal.Decimal
	}
	resolved := make([]resolvedItem, 0, len(input.Items))
	for _, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("quantity for product %d must be positive", item.ProductID)
		}
		product, err := s.stock.ValidateAvailabilityTx(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		unitPrice := DisplayPrice(product.SaleUnit, product.Price)
		resolved = append(resolved, resolvedItem{
			product:   product,
			quantity:  item.Quantity,
			unitPrice: unitPrice,
			lineTotal: unitPrice.Mul(item.Quantity),
		})
	}

	// A bundle replaces the price of its constituent items: when bundles are
	// present they alone make up the total and the item lines only tell the
	// stations what to prepare.
	var total decimal.Decimal
	if len(input.Bundles) > 0 {
		for _, b := range input.Bundles {
			total = total.Add(b.Price.Mul(decimal.NewFromInt(int64(b.Quantity))))
		}
	} else {
		for _, r := range resolved {
			total = total.Add(r.lineTotal)
		}
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_name, attending_role, state, payment_method, proof_url, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, input.CustomerName, input.AttendingRole, StateTaken, input.PaymentMethod, input.ProofURL, total).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	stationIDs := make([]int, 0, 2)
	seenStations := make(map[int]bool)
	for _, r := range resolved {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, station_id, quantity, unit_label, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, orderID, r.product.ID, r.product.StationID, r.quantity, string(r.product.SaleUnit), r.unitPrice, r.lineTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item for product %s: %w", r.product.Name, err)
		}

		if err := s.stock.ReserveTx(ctx, tx, r.product, r.quantity); err != nil {
			return nil, err
		}

		if !seenStations[r.product.StationID] {
			seenStations[r.product.StationID] = true
			stationIDs = append(stationIDs, r.product.StationID)
		}
	}

	if len(input.Bundles) > 0 {
		// Bundle sale rows are anchored to the first item's product so the
		// foreign key holds; reporting groups them by bundle name.
		anchor := resolved[0].product
		for _, b := range input.Bundles {
			qty := decimal.NewFromInt(int64(b.Quantity))
			_, err = tx.Exec(ctx, `
				INSERT INTO sales (order_id, product_id, product_name, quantity, unit_price, line_total,
				                   payment_method, order_total, proof_url, is_bundle, bundle_name, bundle_price)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, $10, $11)
			`, orderID, anchor.ID, b.Name, qty, b.Price, b.Price.Mul(qty),
				input.PaymentMethod, total, input.ProofURL, b.Name, b.Price)
			if err != nil {
				return nil, fmt.Errorf("failed to insert bundle sale %s: %w", b.Name, err)
			}
		}
	} else {
		for _, r := range resolved {
			_, err = tx.Exec(ctx, `
				INSERT INTO sales (order_id, product_id, product_name, quantity, unit_price, line_total,
				                   payment_method, order_total, proof_url, is_bundle)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
			`, orderID, r.product.ID, r.product.Name, r.quantity, r.unitPrice, r.lineTotal,
				input.PaymentMethod, total, input.ProofURL)
			if err != nil {
				return nil, fmt.Errorf("failed to insert sale for product %s: %w", r.product.Name, err)
			}
		}
	}

	// One notification per destination station, broadcast after commit.
	var pending []pendingEvent
	for _, stationID := range stationIDs {
		var stationName, stationRole string
		err = tx.QueryRow(ctx,
			"SELECT name, role FROM stations WHERE id = $1",
			stationID,
		).Scan(&stationName, &stationRole)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve station %d: %w", stationID, err)
		}

		message := fmt.Sprintf("New order from %s for %s", input.CustomerName, stationName)
		_, err = tx.Exec(ctx, `
			INSERT INTO notifications (kind, recipient_role, message, order_id)
			VALUES ($1, $2, $3, $4)
		`, broadcast.EventOrderCreated, stationRole, message, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert notification for station %s: %w", stationName, err)
		}

		pending = append(pending, pendingEvent{
			role:  stationRole,
			event: broadcast.Event{Type: broadcast.EventOrderCreated, OrderID: orderID, Message: message},
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	for _, p := range pending {
		s.hub.Publish(p.role, p.event)
	}
	s.audit.Record(ctx, input.AttendingRole, "CREATE_ORDER", "orders", orderID, nil,
		map[string]any{"customer_name": input.CustomerName, "total": total.String()})

	return s.GetOrder(ctx, orderID)
}

func (s *orderService) AdvanceState(ctx context.Context, orderID int, newState, actingRole string) error {
	if !ValidState(newState) {
		return fmt.Errorf("%w: %q", ErrInvalidState, newState)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerName, priorState, attendingRole string
	err = tx.QueryRow(ctx,
		"SELECT customer_name, state, attending_role FROM orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&customerName, &priorState, &attendingRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
		}
		return fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	if newState == StateDelivered {
		_, err = tx.Exec(ctx, `
			UPDATE orders SET state = $1, updated_at = NOW(), delivered_at = NOW() WHERE id = $2
		`, newState, orderID)
	} else {
		_, err = tx.Exec(ctx,
			"UPDATE orders SET state = $1, updated_at = NOW() WHERE id = $2",
			newState, orderID)
	}
	if err != nil {
		return fmt.Errorf("failed to update order %d state: %w", orderID, err)
	}

	var pending []pendingEvent
	switch newState {
	case StateReady:
		message := fmt.Sprintf("Order for %s ready for dispatch", customerName)
		_, err = tx.Exec(ctx, `
			INSERT INTO notifications (kind, recipient_role, message, order_id)
			VALUES ($1, $2, $3, $4)
		`, broadcast.EventOrderReady, broadcast.RoleDispatch, message, orderID)
		if err != nil {
			return fmt.Errorf("failed to insert dispatch notification: %w", err)
		}
		pending = append(pending, pendingEvent{
			role:  broadcast.RoleDispatch,
			event: broadcast.Event{Type: broadcast.EventOrderReady, OrderID: orderID, Message: message},
		})
	case StateDelivered:
		message := fmt.Sprintf("Order for %s delivered", customerName)
		_, err = tx.Exec(ctx, `
			INSERT INTO notifications (kind, recipient_role, message, order_id)
			VALUES ($1, $2, $3, $4)
		`, broadcast.EventOrderDelivered, attendingRole, message, orderID)
		if err != nil {
			return fmt.Errorf("failed to insert delivery notification: %w", err)
		}
		pending = append(pending, pendingEvent{
			role:  attendingRole,
			event: broadcast.Event{Type: broadcast.EventOrderDelivered, OrderID: orderID, Message: message},
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit state change: %w", err)
	}

	for _, p := range pending {
		s.hub.Publish(p.role, p.event)
	}
	s.audit.Record(ctx, actingRole, "ADVANCE_ORDER_STATE", "orders", orderID,
		map[string]any{"state": priorState}, map[string]any{"state": newState})

	return nil
}

func (s *orderService) MarkDelivered(ctx context.Context, orderID int, actingRole string) error {
	return s.AdvanceState(ctx, orderID, StateDelivered, actingRole)
}

func (s *orderService) DrawBottleForGlassLine(ctx context.Context, orderID, glassProductID, glassCount int, actingRole string) (*BottleDraw, error) {
	if glassCount <= 0 {
		return nil, fmt.Errorf("glass count must be positive, got %d", glassCount)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	draw, err := s.stock.DrawBottlesTx(ctx, tx, glassProductID, glassCount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit bottle draw: %w", err)
	}

	before := draw.RemainingStock.Add(decimal.NewFromInt(int64(draw.BottlesDrawn)))
	s.audit.Record(ctx, actingRole, "DRAW_BOTTLE", "products", draw.BottleProductID,
		map[string]any{"stock": before.String()},
		map[string]any{"stock": draw.RemainingStock.String(), "order_id": orderID})

	if draw.LowStock {
		s.hub.Publish("drinks", broadcast.Event{
			Type:      broadcast.EventLowStockWarning,
			ProductID: draw.BottleProductID,
			Message: fmt.Sprintf("Warning: %s bottle(s) of %s left",
				draw.RemainingStock.String(), draw.BottleName),
		})
	}

	return draw, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, customer_name, attending_role, state, payment_method, proof_url,
		       total, created_at, updated_at, delivered_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&o.ID, &o.CustomerName, &o.AttendingRole, &o.State, &o.PaymentMethod, &o.ProofURL,
		&o.Total, &o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	items, err := s.fetchItems(ctx, "oi.order_id = $1", orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ListPendingByStation returns taken/in-preparation orders that have at least
// one item for the station, carrying only that station's items.
func (s *orderService) ListPendingByStation(ctx context.Context, stationID int) ([]Order, error) {
	orders, err := s.queryOrders(ctx, `
		SELECT DISTINCT o.id, o.customer_name, o.attending_role, o.state, o.payment_method, o.proof_url,
		       o.total, o.created_at, o.updated_at, o.delivered_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.station_id = $1 AND o.state IN ('taken', 'in_preparation')
		ORDER BY o.created_at ASC
	`, stationID)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders, "oi.station_id = $2", stationID)
}

func (s *orderService) ListReadyForDispatch(ctx context.Context) ([]Order, error) {
	orders, err := s.queryOrders(ctx, `
		SELECT id, customer_name, attending_role, state, payment_method, proof_url,
		       total, created_at, updated_at, delivered_at
		FROM orders
		WHERE state = 'ready'
		ORDER BY updated_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders, "")
}

func (s *orderService) ListDeliveredHistory(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	orders, err := s.queryOrders(ctx, `
		SELECT id, customer_name, attending_role, state, payment_method, proof_url,
		       total, created_at, updated_at, delivered_at
		FROM orders
		WHERE state = 'delivered'
		ORDER BY delivered_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders, "")
}

func (s *orderService) Reset(ctx context.Context, phrase, actingRole string) error {
	if phrase != s.closePhrase {
		return ErrBadClosePhrase
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// History and movements go; the catalog stays.
	for _, stmt := range []string{
		"DELETE FROM notifications",
		"DELETE FROM sales",
		"DELETE FROM order_items",
		"DELETE FROM orders",
		"DELETE FROM day_closes",
		"UPDATE products SET stock = 0, updated_at = NOW()",
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset failed on %q: %w", stmt, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	s.audit.Record(ctx, actingRole, "SYSTEM_RESET", "", 0, nil, map[string]any{"action": "full_reset"})

	ev := broadcast.Event{Type: broadcast.EventSystemReset}
	s.hub.Publish(broadcast.RoleService, ev)
	s.hub.Publish(broadcast.RoleDispatch, ev)
	s.hub.PublishToAllStations(ev)

	return nil
}

// ── Row helpers ──────────────────────────────────────────────────────────────

func (s *orderService) queryOrders(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.CustomerName, &o.AttendingRole, &o.State, &o.PaymentMethod, &o.ProofURL,
			&o.Total, &o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// attachItems loads line items for the given orders in one query and groups
// them in memory. extraCond optionally narrows the items (per-station views);
// its placeholders must start at $2 since $1 carries the order id list.
func (s *orderService) attachItems(ctx context.Context, orders []Order, extraCond string, extraArgs ...any) ([]Order, error) {
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int, len(orders))
	index := make(map[int]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	q := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.station_id,
		       oi.quantity, oi.unit_label, oi.unit_price, oi.line_total,
		       p.sale_unit, (p.sale_unit = 'glass' OR p.base_product_id IS NOT NULL)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)`
	args := []any{ids}
	if extraCond != "" {
		q += " AND " + extraCond
		args = append(args, extraArgs...)
	}
	q += " ORDER BY oi.order_id, oi.id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.StationID,
			&it.Quantity, &it.UnitLabel, &it.UnitPrice, &it.LineTotal,
			&it.SaleUnit, &it.IsGlass,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return orders, rows.Err()
}

// fetchItems loads items matching cond (placeholders starting at $1).
func (s *orderService) fetchItems(ctx context.Context, cond string, args ...any) ([]OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.station_id,
		       oi.quantity, oi.unit_label, oi.unit_price, oi.line_total,
		       p.sale_unit, (p.sale_unit = 'glass' OR p.base_product_id IS NOT NULL)
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE `+cond+`
		ORDER BY oi.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.StationID,
			&it.Quantity, &it.UnitLabel, &it.UnitPrice, &it.LineTotal,
			&it.SaleUnit, &it.IsGlass,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
