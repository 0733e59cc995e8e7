package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle states. Orders start as StateTaken; production stations move
// them to in_preparation and ready, dispatch moves them to delivered.
// Cancelled is a legal administrative target from any non-terminal state.
const (
	StateTaken         = "taken"
	StateInPreparation = "in_preparation"
	StateReady         = "ready"
	StateDelivered     = "delivered"
	StateCancelled     = "cancelled"
)

// ValidState reports whether s is a known order state label.
func ValidState(s string) bool {
	switch s {
	case StateTaken, StateInPreparation, StateReady, StateDelivered, StateCancelled:
		return true
	}
	return false
}

// Order is an order header. Line items are loaded alongside it for the
// station and dispatch projections.
type Order struct {
	ID            int             `json:"id"`
	CustomerName  string          `json:"customer_name"`
	AttendingRole string          `json:"attending_role"`
	State         string          `json:"state"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ProofURL      *string         `json:"proof_url,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty"`
}

// OrderItem is one line on an order. StationID, UnitLabel, UnitPrice and
// LineTotal are snapshots taken at creation time; later product edits never
// change what a station saw or what was billed.
type OrderItem struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"` // joined from products
	StationID   int             `json:"station_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitLabel   string          `json:"unit_label"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	SaleUnit    SaleUnit        `json:"sale_unit"` // joined from products
	IsGlass     bool            `json:"is_glass"`
}

// ItemInput is one requested line when creating an order. Quantity is
// expressed in the product's sale unit (2.5 dozens, 3 glasses, …).
type ItemInput struct {
	ProductID int
	Quantity  decimal.Decimal
}

// BundleInput is a flat-priced promotion applied to an order. When any bundle
// is present the bundles alone determine the order total; the item lines only
// tell the stations what to prepare.
type BundleInput struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// SaleRecord is one row of the append-only sales history.
type SaleRecord struct {
	ID            int             `json:"id"`
	OrderID       int             `json:"order_id"`
	ProductID     int             `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	ProofURL      *string         `json:"proof_url,omitempty"`
	IsBundle      bool            `json:"is_bundle"`
	BundleName    *string         `json:"bundle_name,omitempty"`
	BundlePrice   *decimal.Decimal `json:"bundle_price,omitempty"`
	SoldAt        time.Time       `json:"sold_at"`
	CustomerName  string          `json:"customer_name,omitempty"` // joined from orders
}

// BottleDraw reports the outcome of drawing bottle stock to serve glasses.
type BottleDraw struct {
	BottleProductID int             `json:"bottle_product_id"`
	BottleName      string          `json:"bottle_name"`
	BottlesDrawn    int             `json:"bottles_drawn"`
	RemainingStock  decimal.Decimal `json:"remaining_stock"`
	LowStock        bool            `json:"low_stock"` // remaining ≤ 1
}
