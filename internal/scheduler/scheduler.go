// Package scheduler runs the recurring end-of-day summary job.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"cenaculo-pos/internal/broadcast"
	"cenaculo-pos/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler owns the cron loop. Its single job publishes the day's running
// totals to the attending staff shortly before closing time, so the person
// doing the day close already knows what to expect.
type Scheduler struct {
	cron      *cron.Cron
	pool      *pgxpool.Pool
	reporting core.ReportingService
	hub       *broadcast.Hub
	location  *time.Location
	log       *zap.Logger
}

func New(pool *pgxpool.Pool, reporting core.ReportingService, hub *broadcast.Hub,
	location *time.Location, log *zap.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(location)),
		pool:      pool,
		reporting: reporting,
		hub:       hub,
		location:  location,
		log:       log,
	}
}

// Start registers the summary job under the given cron expression and starts
// the cron loop.
func (s *Scheduler) Start(cronExpr string) error {
	if cronExpr == "" {
		cronExpr = "0 23 * * *"
	}
	if _, err := s.cron.AddFunc(cronExpr, s.runDailySummary); err != nil {
		return fmt.Errorf("failed to schedule daily summary %q: %w", cronExpr, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("summary_cron", cronExpr))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runDailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().In(s.location)
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.location)

	summary, err := s.reporting.Summarize(ctx, start, now)
	if err != nil {
		s.log.Error("daily summary failed", zap.Error(err))
		return
	}
	if summary.OrderCount == 0 {
		s.log.Info("daily summary skipped: no sales today")
		return
	}

	message := fmt.Sprintf("Today so far: %s total (%s cash, %s transfers) over %d orders",
		summary.TotalSales.StringFixed(2), summary.TotalCash.StringFixed(2),
		summary.TotalTransfers.StringFixed(2), summary.OrderCount)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (kind, recipient_role, message)
		VALUES ($1, $2, $3)
	`, broadcast.EventDailySummary, broadcast.RoleService, message)
	if err != nil {
		s.log.Error("failed to store daily summary notification", zap.Error(err))
		return
	}

	s.hub.Publish(broadcast.RoleService, broadcast.Event{
		Type:    broadcast.EventDailySummary,
		Message: message,
		Date:    start.Format("2006-01-02"),
	})
	s.log.Info("daily summary published", zap.Int("orders", summary.OrderCount))
}
