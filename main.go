package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"timesheet/config"
	"timesheet/database"
	"timesheet/directory"
	"timesheet/handlers"
	"timesheet/logger"
	"timesheet/middleware"
	"timesheet/models"
	"timesheet/services"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize JWT secret
	middleware.SetJWTSecret(cfg.JWTSecret)

	// Initialize database
	db, err := database.Init(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	roles := make([]models.Role, len(cfg.BootstrapRoles))
	for i, r := range cfg.BootstrapRoles {
		roles[i] = models.Role(r)
	}
	if err := database.SeedServiceAccount(ctx, db, zlog, cfg.BootstrapClientID, cfg.BootstrapClientSecret, cfg.BootstrapEmployee, roles); err != nil {
		zlog.Fatal("Failed to seed service account", zap.Error(err))
	}

	// Collaborators and services
	dir := directory.NewClient(cfg.IdentityURL, cfg.IdentityTimeout, zlog.Named("directory"))
	assignments := services.NewAssignmentRepository(db)
	summaries := services.NewSummaryMachine(db, dir, zlog.Named("summaries"))
	entries := services.NewEntryStore(db, assignments, summaries, zlog.Named("entries"))
	reconciler := services.NewReconciler(db, summaries, dir, zlog.Named("reconciler"))
	dashboard := services.NewDashboard(db, dir, zlog.Named("dashboard"))

	if cfg.ReminderInterval > 0 {
		notifier, err := services.NewNotifier(cfg.Notifier, zlog.Named("notifier"))
		if err != nil {
			zlog.Fatal("Failed to initialize notifier", zap.Error(err))
		}
		reminder := services.NewReminder(dir, notifier, cfg.ReminderInterval, zlog.Named("reminder"))
		reminder.Start(ctx)
		defer reminder.Stop()
	}

	// Setup router
	router := handlers.NewRouter(handlers.Handlers{
		Auth:      handlers.NewAuthHandler(cfg, db, zlog.Named("auth")),
		Timesheet: handlers.NewTimesheetHandler(cfg, entries, summaries, zlog.Named("timesheet")),
		Manager:   handlers.NewManagerHandler(cfg, reconciler, summaries, dashboard, zlog.Named("manager")),
		Projects:  handlers.NewProjectHandler(assignments, zlog.Named("projects")),
	}, zlog.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("Server shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("Server starting", zap.String("port", cfg.ServerPort), zap.String("driver", cfg.DatabaseDriver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("Server failed", zap.Error(err))
	}
	zlog.Info("Server stopped")
}
