package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prepflow/prepflow-backend/internal/inventory/alerting"
	"github.com/prepflow/prepflow-backend/internal/inventory/consumers"
	"github.com/prepflow/prepflow-backend/internal/inventory/events"
	"github.com/prepflow/prepflow-backend/internal/inventory/handler"
	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/planning"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/internal/inventory/stocktake"
	"github.com/prepflow/prepflow-backend/pkg/config"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/prepflow/prepflow-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	if err := rmq.DeclareDeadLetterQueue("inventory-service"); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	// Initialize event publisher
	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	stockRepo := repository.NewStockRepository(db)
	adjustmentRepo := repository.NewAdjustmentRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Initialize engines. The ledger tells alerting about every stock
	// change; alerting never blocks a mutation.
	alertEngine := alerting.NewEngine(alertRepo, stockRepo, publisher, log)
	ledgerEngine := ledger.NewEngine(stockRepo, alertEngine, publisher, log)
	translator := planning.NewTranslator(recipeRepo, log)
	replenishEngine := planning.NewReplenishmentEngine(stockRepo, supplierRepo, publisher, log)
	reconciler := stocktake.NewReconciler(ledgerEngine, log)

	// Initialize handlers
	productHandler := handler.NewProductHandler(productRepo, ledgerEngine, log)
	stockHandler := handler.NewStockHandler(ledgerEngine, adjustmentRepo, stockRepo, log)
	alertHandler := handler.NewAlertHandler(alertEngine, log)
	recipeHandler := handler.NewRecipeHandler(recipeRepo, log)
	supplierHandler := handler.NewSupplierHandler(supplierRepo, log)
	stocktakeHandler := handler.NewStocktakeHandler(reconciler, log)
	replenishHandler := handler.NewReplenishmentHandler(translator, replenishEngine, orderRepo, cfg.Inventory.DefaultHorizonDays, log)
	orderHandler := handler.NewOrderHandler(orderRepo, productRepo, ledgerEngine, publisher, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start POS sales consumer
	salesConsumer, err := consumers.NewSalesEventConsumer(rmq, recipeRepo, ledgerEngine, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sales event consumer")
	}
	if err := salesConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start sales event consumer")
	}

	// Start periodic alert scanner
	scanner := alerting.NewScanner(alertEngine, productRepo, stockRepo, publisher, cfg.Inventory.ExpiryWarningDays, log)
	scheduler := alerting.NewScheduler(scanner, cfg.Inventory.AlertScanInterval, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.Actor)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/inventory", func(r chi.Router) {
		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{id}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)

			// Ledger operations per product
			r.Get("/{id}/stock", stockHandler.TotalStock)
			r.Get("/{id}/batches", stockHandler.Batches)
			r.Post("/{id}/batches", stockHandler.AddBatch)
			r.Post("/{id}/consume", stockHandler.Consume)
			r.Post("/{id}/adjust", stockHandler.Adjust)
			r.Get("/{id}/adjustments", stockHandler.History)
			r.Post("/{id}/stocktake", stocktakeHandler.Reconcile)
			r.Post("/{id}/check", alertHandler.Check)
		})

		// Batch reports
		r.Get("/batches/expiring", stockHandler.Expiring)

		// Alert routes
		r.Get("/alerts", alertHandler.ListOpen)
		r.Put("/alerts/{id}/acknowledge", alertHandler.Acknowledge)

		// Recipe routes
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.ListMenuItems)
			r.Post("/", recipeHandler.Upsert)
			r.Get("/{menuItemId}", recipeHandler.Lines)
			r.Delete("/lines/{id}", recipeHandler.Delete)
		})

		// Supplier catalog routes
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", supplierHandler.List)
			r.Post("/", supplierHandler.Upsert)
			r.Delete("/{id}", supplierHandler.Delete)
		})

		// Planning routes
		r.Post("/replenishment/plan", replenishHandler.Plan)
		r.Get("/replenishment/plan/latest", replenishHandler.LatestPlan)
		r.Post("/stocktake", stocktakeHandler.ReconcileAll)

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Get("/{id}", orderHandler.Get)
			r.Put("/{id}/status", orderHandler.UpdateStatus)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers and the scheduler
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
