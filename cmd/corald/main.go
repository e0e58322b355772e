package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/openbiome/coral/pkg/access"
	"github.com/openbiome/coral/pkg/audit"
	"github.com/openbiome/coral/pkg/catalog"
	"github.com/openbiome/coral/pkg/config"
	"github.com/openbiome/coral/pkg/fileauth"
	"github.com/openbiome/coral/pkg/identity"
	"github.com/openbiome/coral/pkg/observability"
	"github.com/openbiome/coral/pkg/propagate"
)

// pollDBStats mirrors the connection pool state into the gauges until
// the context is cancelled.
func pollDBStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("starting coral permission daemon")

	// Database
	db, err := catalog.Open(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.Timeout)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Background workers stop when this context is cancelled at shutdown.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	go pollDBStats(workerCtx, db, metrics)

	var store catalog.Store = catalog.NewPostgresStore(db)
	if cfg.Cache.Enabled {
		cached, err := catalog.NewCachedStore(store, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.L1Size, cfg.Cache.TTL)
		if err != nil {
			logrus.Fatalf("Failed to initialize record cache: %v", err)
		}
		cached.SetMetrics(metrics)
		store = cached
		logger.WithField("redis_addr", cfg.Cache.RedisAddr).Info("record cache enabled")
	}

	// Audit trail
	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		logrus.Fatalf("Failed to initialize audit trail: %v", err)
	}
	defer auditLogger.Close()

	// External collaborators
	idp := identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.Timeout)
	authClient := fileauth.NewHTTPClient(cfg.FileAuth.BaseURL, cfg.FileAuth.Timeout)

	propagator := propagate.NewPropagator(store, authClient, logger,
		propagate.WithSharedPrefixes(cfg.FileAuth.SharedPrefixes),
		propagate.WithConcurrency(cfg.FileAuth.Concurrency),
		propagate.WithMetrics(metrics),
		propagate.WithAudit(auditLogger),
	)

	if cfg.Reconciler.Enabled {
		reconciler := propagate.NewReconciler(propagator, logger, cfg.Reconciler.ServiceToken)
		if err := reconciler.Start(cfg.Reconciler.Schedule); err != nil {
			logrus.Fatalf("Failed to start reconciler: %v", err)
		}
		defer reconciler.Stop()
	}

	// Operational server: health probes, metrics and access introspection
	health := observability.NewHealthChecker()
	health.Register("database", func(ctx context.Context) error {
		return db.PingContext(ctx)
	})

	handler := &accessHandler{
		resolver: access.NewResolver(store, metrics),
		idp:      idp,
	}

	router := mux.NewRouter()
	router.Use(requestIDMiddleware(logger))
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/access/projects/{id}", handler.project).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/access/samples/{id}", handler.sample).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/access/project-groups/{id}", handler.group).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("operational server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Operational server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopWorkers()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("operational server shutdown failed")
	}
}
