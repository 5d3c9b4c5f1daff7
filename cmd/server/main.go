package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealradar/price-tracker/internal/alert"
	"github.com/dealradar/price-tracker/internal/api"
	"github.com/dealradar/price-tracker/internal/catalog"
	"github.com/dealradar/price-tracker/internal/config"
	"github.com/dealradar/price-tracker/internal/database"
	"github.com/dealradar/price-tracker/internal/ledger"
	"github.com/dealradar/price-tracker/internal/monitor"
	"github.com/dealradar/price-tracker/internal/notify"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Catalog source client
	source := catalog.NewRainforestClient(cfg.CatalogAPIKey, catalog.ClientOptions{
		BaseURL:           cfg.CatalogBaseURL,
		Timeout:           cfg.CatalogTimeout,
		RequestsPerSecond: cfg.CatalogRPS,
		Burst:             cfg.CatalogBurst,
		CacheTTL:          cfg.CatalogCacheTTL,
	})

	// Notification transport: Telegram when configured, log otherwise
	var dispatcher notify.Dispatcher
	if cfg.TelegramBotToken != "" {
		telegram, err := notify.NewTelegramDispatcher(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram dispatcher: %v", err)
		}
		dispatcher = telegram
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, alerts will be logged only")
		dispatcher = notify.NewLogDispatcher()
	}

	priceLedger := ledger.New(db)
	tracking := monitor.NewTrackingStore(db)
	evaluator := alert.NewEvaluator(cfg.DefaultAlertThreshold)

	orchestrator := monitor.NewOrchestrator(db, source, priceLedger, tracking, evaluator, dispatcher,
		monitor.OrchestratorOptions{
			Workers:      cfg.WorkerCount,
			FetchTimeout: cfg.CatalogTimeout,
		})

	priceMonitor, err := monitor.New(orchestrator, cfg.UpdateSchedule)
	if err != nil {
		log.Fatalf("Invalid UPDATE_SCHEDULE %q: %v", cfg.UpdateSchedule, err)
	}

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the monitor in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in price monitor: %v - restarting in 30 seconds", r)
					}
				}()
				priceMonitor.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				log.Println("Price monitor restarting after panic recovery...")
			}
		}
	}()

	// Setup router
	router := api.SetupRouter(db, priceLedger, priceMonitor, cfg.CORSOrigins)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the scheduler
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
