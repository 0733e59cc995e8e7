package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cenaculo-pos/internal/broadcast"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SalesSummary aggregates the sales history over a time window. Totals come
// from line totals, so bundle and ordinary rows add up without double
// counting.
type SalesSummary struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalCash      decimal.Decimal `json:"total_cash"`
	TotalTransfers decimal.Decimal `json:"total_transfers"`
	OrderCount     int             `json:"order_count"`
}

// ProductSales is one row of the top-products ranking. Bundles are grouped by
// bundle name rather than by the product id their sale rows are anchored to.
type ProductSales struct {
	ProductName string          `json:"product_name"`
	IsBundle    bool            `json:"is_bundle"`
	UnitsSold   decimal.Decimal `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// ReportRenderer produces the printable day-close document.
type ReportRenderer interface {
	DayCloseReport(close *DayClose, topProducts []ProductSales) ([]byte, error)
}

// FileUploader stores a file and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// ReportingService answers the money questions: period summaries, rankings,
// the raw sales feed, and the once-per-date day close.
type ReportingService interface {
	Summarize(ctx context.Context, from, to time.Time) (*SalesSummary, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error)
	// ListSales returns individual sale rows in the window, newest first,
	// capped at 500 rows.
	ListSales(ctx context.Context, from, to time.Time) ([]SaleRecord, error)

	// CloseDay snapshots one calendar date's totals. Guarded by the close
	// phrase; a date can only be closed once. The PDF report and its upload
	// are best effort: a storage failure leaves the close in place without a
	// report URL.
	CloseDay(ctx context.Context, date time.Time, phrase, actingRole string) (*DayClose, error)
	GetDayClose(ctx context.Context, date time.Time) (*DayClose, error)
}

type reportingService struct {
	pool        *pgxpool.Pool
	hub         *broadcast.Hub
	audit       Auditor
	renderer    ReportRenderer
	uploader    FileUploader
	closePhrase string
	location    *time.Location
	log         *zap.Logger
}

func NewReportingService(pool *pgxpool.Pool, hub *broadcast.Hub, audit Auditor,
	renderer ReportRenderer, uploader FileUploader,
	closePhrase string, location *time.Location, log *zap.Logger) ReportingService {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &reportingService{
		pool: pool, hub: hub, audit: audit,
		renderer: renderer, uploader: uploader,
		closePhrase: closePhrase, location: location, log: log,
	}
}

func (s *reportingService) Summarize(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	summary := &SalesSummary{From: from, To: to}
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(line_total), 0),
		       COALESCE(SUM(line_total) FILTER (WHERE payment_method = 'cash'), 0),
		       COALESCE(SUM(line_total) FILTER (WHERE payment_method = 'transfer'), 0),
		       COUNT(DISTINCT order_id)
		FROM sales
		WHERE sold_at >= $1 AND sold_at < $2
	`, from, to).Scan(&summary.TotalSales, &summary.TotalCash, &summary.TotalTransfers, &summary.OrderCount)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize sales: %w", err)
	}
	return summary, nil
}

func (s *reportingService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = 10
	}
	// Ordinary rows group by product, bundle rows by bundle name: the anchor
	// product id on a bundle row is a foreign-key convenience, not the thing
	// that was sold.
	rows, err := s.pool.Query(ctx, `
		SELECT CASE WHEN is_bundle THEN bundle_name ELSE product_name END AS name,
		       is_bundle,
		       SUM(quantity)   AS units_sold,
		       SUM(line_total) AS revenue
		FROM sales
		WHERE sold_at >= $1 AND sold_at < $2
		GROUP BY 1, 2
		ORDER BY revenue DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank products: %w", err)
	}
	defer rows.Close()

	var ranking []ProductSales
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductName, &ps.IsBundle, &ps.UnitsSold, &ps.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan product ranking: %w", err)
		}
		ranking = append(ranking, ps)
	}
	return ranking, rows.Err()
}

func (s *reportingService) ListSales(ctx context.Context, from, to time.Time) ([]SaleRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.order_id, s.product_id, s.product_name, s.quantity, s.unit_price,
		       s.line_total, s.payment_method, s.order_total, s.proof_url,
		       s.is_bundle, s.bundle_name, s.bundle_price, s.sold_at, o.customer_name
		FROM sales s
		JOIN orders o ON o.id = s.order_id
		WHERE s.sold_at >= $1 AND s.sold_at < $2
		ORDER BY s.sold_at DESC
		LIMIT 500
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []SaleRecord
	for rows.Next() {
		var r SaleRecord
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.ProductID, &r.ProductName, &r.Quantity, &r.UnitPrice,
			&r.LineTotal, &r.PaymentMethod, &r.OrderTotal, &r.ProofURL,
			&r.IsBundle, &r.BundleName, &r.BundlePrice, &r.SoldAt, &r.CustomerName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, r)
	}
	return sales, rows.Err()
}

// dayBounds returns the [start, end) window of the calendar date in the
// business timezone.
func (s *reportingService) dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(s.location).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}

func (s *reportingService) CloseDay(ctx context.Context, date time.Time, phrase, actingRole string) (*DayClose, error) {
	if phrase != s.closePhrase {
		return nil, ErrBadClosePhrase
	}

	start, end := s.dayBounds(date)
	closeDate := start.Format("2006-01-02")

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM day_closes WHERE close_date = $1)",
		closeDate,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior close for %s: %w", closeDate, err)
	}
	if exists {
		return nil, fmt.Errorf("date %s: %w", closeDate, ErrAlreadyClosed)
	}

	snapshot := &DayClose{CloseDate: closeDate, ClosedBy: actingRole}
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(line_total), 0),
		       COALESCE(SUM(line_total) FILTER (WHERE payment_method = 'cash'), 0),
		       COALESCE(SUM(line_total) FILTER (WHERE payment_method = 'transfer'), 0),
		       COUNT(DISTINCT order_id)
		FROM sales
		WHERE sold_at >= $1 AND sold_at < $2
	`, start, end).Scan(&snapshot.TotalSales, &snapshot.TotalCash, &snapshot.TotalTransfers, &snapshot.OrderCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate day %s: %w", closeDate, err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO day_closes (close_date, total_sales, total_cash, total_transfers, order_count, closed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, closeDate, snapshot.TotalSales, snapshot.TotalCash, snapshot.TotalTransfers, snapshot.OrderCount, actingRole,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert day close for %s: %w", closeDate, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit day close: %w", err)
	}

	s.attachReport(ctx, snapshot, start, end)

	s.audit.Record(ctx, actingRole, "CLOSE_DAY", "day_closes", snapshot.ID, nil, snapshot)

	message := fmt.Sprintf("Day %s closed: %s total over %d orders",
		closeDate, snapshot.TotalSales.StringFixed(2), snapshot.OrderCount)
	ev := broadcast.Event{Type: broadcast.EventDayClosed, Message: message, Date: closeDate}
	s.hub.Publish(broadcast.RoleService, ev)
	s.hub.Publish(broadcast.RoleDispatch, ev)

	return snapshot, nil
}

// attachReport renders and uploads the PDF for a committed close. Failures
// are logged, never returned: the close itself already happened.
func (s *reportingService) attachReport(ctx context.Context, snapshot *DayClose, start, end time.Time) {
	if s.renderer == nil || s.uploader == nil {
		return
	}

	top, err := s.TopProducts(ctx, start, end, 10)
	if err != nil {
		s.log.Warn("day close report skipped: ranking failed",
			zap.String("date", snapshot.CloseDate), zap.Error(err))
		return
	}

	pdf, err := s.renderer.DayCloseReport(snapshot, top)
	if err != nil {
		s.log.Warn("day close report skipped: render failed",
			zap.String("date", snapshot.CloseDate), zap.Error(err))
		return
	}

	filename := fmt.Sprintf("day-close-%s.pdf", snapshot.CloseDate)
	url, err := s.uploader.Upload(ctx, pdf, filename, "application/pdf")
	if err != nil {
		s.log.Warn("day close report upload failed",
			zap.String("date", snapshot.CloseDate), zap.Error(err))
		return
	}

	_, err = s.pool.Exec(ctx,
		"UPDATE day_closes SET report_pdf_url = $1 WHERE id = $2",
		url, snapshot.ID)
	if err != nil {
		s.log.Warn("failed to record report url",
			zap.String("date", snapshot.CloseDate), zap.Error(err))
		return
	}
	snapshot.ReportPDFURL = &url
}

func (s *reportingService) GetDayClose(ctx context.Context, date time.Time) (*DayClose, error) {
	start, _ := s.dayBounds(date)
	closeDate := start.Format("2006-01-02")

	var dc DayClose
	err := s.pool.QueryRow(ctx, `
		SELECT id, close_date::text, total_sales, total_cash, total_transfers,
		       order_count, report_pdf_url, closed_by, created_at
		FROM day_closes
		WHERE close_date = $1
	`, closeDate).Scan(
		&dc.ID, &dc.CloseDate, &dc.TotalSales, &dc.TotalCash, &dc.TotalTransfers,
		&dc.OrderCount, &dc.ReportPDFURL, &dc.ClosedBy, &dc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no day close for %s", closeDate)
		}
		return nil, fmt.Errorf("failed to fetch day close for %s: %w", closeDate, err)
	}
	return &dc, nil
}
