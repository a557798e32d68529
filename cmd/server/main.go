package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/practicehub/ledger/internal/advisor"
	"github.com/practicehub/ledger/internal/analytics"
	"github.com/practicehub/ledger/internal/api"
	"github.com/practicehub/ledger/internal/auth"
	"github.com/practicehub/ledger/internal/billing"
	"github.com/practicehub/ledger/internal/compliance"
	"github.com/practicehub/ledger/internal/config"
	"github.com/practicehub/ledger/internal/engine"
	"github.com/practicehub/ledger/internal/ingestion"
	"github.com/practicehub/ledger/internal/metrics"
	"github.com/practicehub/ledger/internal/reconciliation"
	"github.com/practicehub/ledger/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	logger.Infof("Initializing database at %s", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	orgRepo := repository.NewOrganizationRepo(db)
	matterRepo := repository.NewMatterRepo(db)
	billingRepo := repository.NewBillingRepo(db)
	trustRepo := repository.NewTrustRepo(db)
	complianceRepo := repository.NewComplianceRepo(db)
	tx := repository.NewTransactor(db)

	// Create services.
	collector := metrics.NewCollector(logger)
	eng := engine.New(engine.Services{
		Billing:    billing.NewService(matterRepo, billingRepo, logger),
		Trust:      reconciliation.NewService(trustRepo, logger),
		Compliance: compliance.NewService(complianceRepo, cfg.ComplianceWindow, logger),
		Analytics:  analytics.NewService(matterRepo, billingRepo, trustRepo, advisor.DefaultAdvisor(), logger),
		Tx:         tx,
	}, collector, logger)
	ingestionSvc := ingestion.NewService(tx, orgRepo, matterRepo, billingRepo, trustRepo, complianceRepo, logger)

	// Seed if DB is empty.
	ctx := context.Background()
	count, err := orgRepo.Count(ctx)
	if err != nil {
		logger.Fatalf("Failed to count organizations: %v", err)
	}
	if count == 0 {
		logger.Info("Database is empty, seeding from fixture...")
		if err := seed(ctx, ingestionSvc, cfg.SeedPath); err != nil {
			config.LogError(logger, "main", "seed", "seed fixture", cfg.SeedPath, err)
		}
	} else {
		logger.Infof("Database already has %d organizations, skipping seed", count)
	}

	keys := auth.NewStaticKeyStore()
	for _, k := range cfg.APIKeys {
		keys.Add(k.Key, auth.Identity{UserID: k.UserID, Organizations: k.Organizations})
	}
	if len(cfg.APIKeys) == 0 {
		logger.Warn("API_KEYS is empty; every /api/v1 request will be rejected")
	}

	// Create router.
	router := api.NewRouter(eng, keys, db, collector.Handler(), logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	waitForShutdown(logger, server, cfg.ShutdownTimeout)
	logger.Info("Shutdown complete")
}

func seed(ctx context.Context, svc *ingestion.Service, path string) error {
	// Try the configured path, then relative to the executable.
	candidates := []string{path}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, path),
			filepath.Join(dir, "..", "..", path),
		)
	}

	var data []byte
	var loadErr error
	for _, p := range candidates {
		data, loadErr = os.ReadFile(p)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("could not find %s in any candidate path (run go run ./testdata/generate): %w", path, loadErr)
	}

	if _, err := svc.Load(ctx, data); err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	return nil
}

func waitForShutdown(logger logrus.FieldLogger, server *http.Server, timeout time.Duration) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		config.LogError(logger, "main", "waitForShutdown", "http server shutdown", nil, err)
	}
}
