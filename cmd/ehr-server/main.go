package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/LPredmore/lh-ehr/internal/audit"
	"github.com/LPredmore/lh-ehr/internal/identity"
	"github.com/LPredmore/lh-ehr/internal/policy"
	"github.com/LPredmore/lh-ehr/internal/reactions"
	"github.com/LPredmore/lh-ehr/internal/records"
	"github.com/LPredmore/lh-ehr/pkg/config"
	"github.com/LPredmore/lh-ehr/pkg/database"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/monitoring"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CreateSchema(ctx); err != nil {
		logger.Fatalf("Failed to create database schema: %v", err)
	}

	monitoring.RegisterMetrics()

	var tracing *monitoring.TracingManager
	if cfg.Tracing.Enabled {
		tracing, err = monitoring.NewTracingManager(&monitoring.TracingConfig{
			ServiceName:    "ehr-server",
			ServiceVersion: serviceVersion,
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
			Environment:    cfg.Tracing.Environment,
			SamplingRate:   cfg.Tracing.SamplingRate,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize tracing: %v", err)
		}
	}

	store := records.NewStore(db, logger)
	engine := policy.NewEngine(logger)
	recorder := audit.NewRecorder(cfg.Audit.ExcludedFields)
	publisher := reactions.NewLogPublisher(logger)
	notifier := reactions.NewNotifier(publisher, cfg.Notifications.HighRiskTopic, logger)
	service := records.NewService(store, engine, recorder, notifier, logger)

	resolver := identity.NewResolver(&cfg.JWT, store, logger)
	authn := identity.NewMiddleware(resolver, logger)

	sweeper := reactions.NewLockSweeper(&cfg.LockSweep, store, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatalf("Failed to start note lock sweep: %v", err)
	}

	health := monitoring.NewHealthManager("ehr-server", serviceVersion)
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	router := mux.NewRouter()
	router.Use(monitoring.RequestID)
	if tracing != nil {
		router.Use(monitoring.TraceMiddleware(tracing))
	}
	if cfg.Monitoring.Enabled {
		router.Use(monitoring.HTTPMiddleware)
		router.Handle(cfg.Monitoring.MetricsPath, monitoring.Handler()).Methods("GET")
	}
	router.HandleFunc(cfg.Monitoring.HealthPath, health.HTTPHandler()).Methods("GET")

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(authn.Authenticate)
	records.NewHandler(service, logger).RegisterRoutes(protected)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Starting EHR server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down EHR server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	sweeper.Stop()
	notifier.Wait()

	if tracing != nil {
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Error during tracing shutdown: %v", err)
		}
	}

	logger.Info("EHR server stopped")
}
