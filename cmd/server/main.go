package main

import (
	"context"
	"log"
	"net/http"

	"cenaculo-pos/internal/adapters/web"
	"cenaculo-pos/internal/broadcast"
	"cenaculo-pos/internal/config"
	"cenaculo-pos/internal/core"
	"cenaculo-pos/internal/db"
	"cenaculo-pos/internal/report"
	"cenaculo-pos/internal/scheduler"
	"cenaculo-pos/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	location := cfg.Location()
	hub := broadcast.NewHub(broadcast.DefaultStationRoles, logger)
	auditor := core.NewAuditor(pool, logger)
	stock := core.NewStockKeeper(pool, cfg.Business.GlassesPerBottle)
	uploader := storage.NewSupabaseUploader(cfg.Storage.URL, cfg.Storage.Key, cfg.Storage.Bucket)
	renderer := report.NewPDFRenderer(cfg.Business.Name)

	catalogService := core.NewCatalogService(pool, auditor)
	orderService := core.NewOrderService(pool, stock, hub, auditor, cfg.Business.ClosePhrase)
	notificationService := core.NewNotificationService(pool)
	reportingService := core.NewReportingService(pool, hub, auditor,
		renderer, uploader, cfg.Business.ClosePhrase, location, logger)

	if !uploader.Configured() {
		logger.Warn("file storage not configured; proof and report uploads disabled")
	}

	sched := scheduler.New(pool, reportingService, hub, location, logger)
	if err := sched.Start(cfg.Scheduler.SummaryCron); err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}
	defer sched.Stop()

	handler := web.NewHandler(web.Services{
		Catalog:       catalogService,
		Orders:        orderService,
		Notifications: notificationService,
		Reporting:     reportingService,
		Audit:         auditor,
		Uploader:      uploader,
	}, hub, cfg, logger)

	logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := http.ListenAndServe(":"+cfg.Server.Port, handler); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
