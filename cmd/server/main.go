/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stipend engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, file, .env, STIPENDS_* environment)
  3. Initialize logger
  4. Open the store (sqlite3, postgres or memory)
  5. Build the payment ledger and both engines
  6. Configure HTTP router and optional payroll scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port, overrides server.port
  -db      Database DSN, overrides database.dsn
           Use ":memory:" for an in-memory SQLite database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for a running job)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/stipends.db"

  # Run against postgres
  STIPENDS_DATABASE_DRIVER=postgres \
  STIPENDS_DATABASE_DSN="postgres://stipends@localhost/stipends?sslmode=disable" ./server

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/stipend-engine/api"
	"github.com/warp/stipend-engine/config"
	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/incentive"
	"github.com/warp/stipend-engine/kollel"
	"github.com/warp/stipend-engine/logger"
	"github.com/warp/stipend-engine/store/memory"
	"github.com/warp/stipend-engine/store/sqlstore"
)

// repository is what both store implementations provide.
type repository interface {
	incentive.Store
	kollel.Store
	generic.PaymentStore
}

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dsn := flag.String("db", "", "Database DSN (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get().Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	log, err := logger.Init(cfg.Logging)
	if err != nil {
		logger.Get().Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize store
	store, closeStore, err := openStore(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer closeStore()

	// Engines
	incCfg, err := cfg.IncentiveEngineConfig()
	if err != nil {
		log.Fatalf("Invalid incentive configuration: %v", err)
	}
	kolCfg, err := cfg.KollelEngineConfig()
	if err != nil {
		log.Fatalf("Invalid kollel configuration: %v", err)
	}

	payments := generic.NewPaymentLedger(store, generic.NewRegistry())
	incEngine, err := incentive.NewEngine(store, payments, incCfg, log)
	if err != nil {
		log.Fatalf("Failed to build incentive engine: %v", err)
	}
	kolEngine, err := kollel.NewEngine(store, payments, kolCfg, log)
	if err != nil {
		log.Fatalf("Failed to build kollel engine: %v", err)
	}

	handler := api.NewHandler(incEngine, kolEngine, payments, log)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.Server.CORSOrigins})

	var scheduler *api.PayrollScheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = api.NewPayrollScheduler(kolEngine, cfg.Scheduler.Cron, log)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		scheduler.Start()
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":   cfg.Server.Port,
			"driver": cfg.Database.Driver,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("server stopped")
}

func openStore(cfg config.DatabaseConfig) (repository, func(), error) {
	if cfg.Driver == "memory" {
		return memory.New(), func() {}, nil
	}
	store, err := sqlstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}
