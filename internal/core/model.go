package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleUnit is the unit a product is sold in. Stock is always kept in base
// units; the conversion rules live in units.go.
type SaleUnit string

const (
	SaleUnitUnit      SaleUnit = "unit"
	SaleUnitDozen     SaleUnit = "dozen"
	SaleUnitHalfDozen SaleUnit = "half_dozen"
	SaleUnitBottle    SaleUnit = "bottle"
	SaleUnitGlass     SaleUnit = "glass"
)

// Valid reports whether u is a known sale unit.
func (u SaleUnit) Valid() bool {
	switch u {
	case SaleUnitUnit, SaleUnitDozen, SaleUnitHalfDozen, SaleUnitBottle, SaleUnitGlass:
		return true
	}
	return false
}

// PaymentMethod is how an order was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// Station is a kitchen production area (grill, oven, drinks, …). Its Role tag
// drives which broadcast channel and notification inbox receives new-order
// alerts for the station's products.
type Station struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups products for display purposes only.
type Category struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

// Product is a sellable catalog item. Stock is a decimal because dozen-sold
// products can hold fractional base units. A glass-unit product must point at
// its bottle parent via BaseProductID; its own Stock column is not
// authoritative for availability.
type Product struct {
	ID            int             `json:"id"`
	StationID     int             `json:"station_id"`
	CategoryID    *int            `json:"category_id,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Stock         decimal.Decimal `json:"stock"`
	SaleUnit      SaleUnit        `json:"sale_unit"`
	BaseProductID *int            `json:"base_product_id,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Notification is a durable role-addressed message. The live broadcast is the
// low-latency path; this row is the backlog a reconnecting client polls.
type Notification struct {
	ID            int       `json:"id"`
	Kind          string    `json:"kind"`
	RecipientRole string    `json:"recipient_role"`
	Message       string    `json:"message"`
	OrderID       *int      `json:"order_id,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

// DayClose is the immutable snapshot produced by the close-day operation,
// one per calendar date.
type DayClose struct {
	ID             int             `json:"id"`
	CloseDate      string          `json:"close_date"` // YYYY-MM-DD
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalCash      decimal.Decimal `json:"total_cash"`
	TotalTransfers decimal.Decimal `json:"total_transfers"`
	OrderCount     int             `json:"order_count"`
	ReportPDFURL   *string         `json:"report_pdf_url,omitempty"`
	ClosedBy       string          `json:"closed_by"`
	CreatedAt      time.Time       `json:"created_at"`
}
