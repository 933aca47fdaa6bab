package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edifika/edifika/internal/config"
	"github.com/edifika/edifika/internal/database"
	"github.com/edifika/edifika/internal/events"
	"github.com/edifika/edifika/internal/modules/attachments"
	"github.com/edifika/edifika/internal/modules/movements"
	"github.com/edifika/edifika/internal/modules/taxonomy"
	"github.com/edifika/edifika/internal/scheduler"
	"github.com/edifika/edifika/internal/server"
	"github.com/edifika/edifika/pkg/logger"
)

func main() {
	// Load configuration first so the logger can honor LOG_LEVEL
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Edifika movement service")

	// Taxonomy database: read-mostly concept hierarchy
	taxonomyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "taxonomy.db"),
		Profile: database.ProfileStandard,
		Name:    "taxonomy",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open taxonomy database")
	}
	defer taxonomyDB.Close()

	// Ledger database: movements, audit trail and attachment links share it
	// so pair writes and cascades commit in a single transaction
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	// Initialize schemas
	if err := taxonomy.InitSchema(taxonomyDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize taxonomy schema")
	}
	if err := movements.InitSchema(ledgerDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize movements schema")
	}
	if err := attachments.InitSchema(ledgerDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize attachments schema")
	}

	// Event bus
	bus := events.NewBus(log)

	// Taxonomy cache
	taxonomyRepo := taxonomy.NewRepository(taxonomyDB.Conn(), log)
	taxonomyCache := taxonomy.NewCache(taxonomyRepo, log)

	// Movement ledger
	auditLog := movements.NewAuditLog(ledgerDB.Conn(), log)
	movementRepo := movements.NewRepository(ledgerDB.Conn(), auditLog, log)
	movementService := movements.NewService(movementRepo, taxonomyCache, bus, log)

	// Attachment links
	attachRepo := attachments.NewRepository(ledgerDB.Conn(), log)

	// Scheduler and background jobs
	sched := scheduler.New(log)
	taxonomyRefreshJob := scheduler.NewTaxonomyRefreshJob(taxonomyCache, bus, log)
	integrityCheckJob := scheduler.NewIntegrityCheckJob(movementRepo, auditLog, bus, cfg.AuditRetainDays, log)

	if err := sched.AddJob(cfg.TaxonomyRefresh, taxonomyRefreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register taxonomy refresh job")
	}
	if err := sched.AddJob(cfg.IntegrityCheck, integrityCheckJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register integrity check job")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:        log,
		TaxonomyDB: taxonomyDB,
		LedgerDB:   ledgerDB,
		Config:     cfg,
		Bus:        bus,
		Cache:      taxonomyCache,
		Movements:  movementService,
		Attach:     attachRepo,
		Scheduler:  sched,
	})
	srv.SetJobs(taxonomyRefreshJob, integrityCheckJob)

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
