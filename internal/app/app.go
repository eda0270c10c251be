package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-cloud-clipper/internal/clipper"
	"go-cloud-clipper/internal/config"
	"go-cloud-clipper/internal/database"
	"go-cloud-clipper/internal/event"
	"go-cloud-clipper/internal/handler"
	"go-cloud-clipper/internal/license"
	"go-cloud-clipper/internal/pcloud"
	"go-cloud-clipper/internal/router"
	"go-cloud-clipper/internal/rules"
	"go-cloud-clipper/internal/settings"
	"go-cloud-clipper/internal/upload"
	"go-cloud-clipper/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cancelHub    context.CancelFunc
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.Default()
	bus := event.NewBus()

	// Settings live in Postgres when a DATABASE_URL is configured, and fall
	// back to process memory otherwise. The memory store loses everything on
	// restart; fine for development, not for a deployment.
	var db *database.DB
	var store settings.Store
	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL")
		db, err = database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		store = settings.NewPostgresStore(db.Pool)
		slog.Info("database ready")
	} else {
		slog.Warn("DATABASE_URL not set, settings will not survive restarts")
		store = settings.NewMemoryStore()
	}

	settingsSvc := settings.NewService(store, bus)
	client := pcloud.NewHTTPClient(cfg.StorageAPIBase, logger)
	matcher := rules.NewMatcher(logger)
	resolver := upload.NewFolderResolver(client)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := upload.NewMetrics(promRegistry)

	registry := upload.NewRegistry(bus)
	coordinator := upload.NewCoordinator(
		registry,
		client,
		settingsSvc,
		matcher,
		resolver,
		upload.RealClock(),
		metrics,
		logger,
		cfg.ClearDelay,
		cfg.ClearCountdown,
	)

	licenses := license.NewManager(settingsSvc, bus, cfg.LicenseSigningKey, cfg.LicenseAPIBase, logger)
	clips := clipper.NewService(coordinator, settingsSvc, licenses, upload.RealClock(), logger, cfg.FetchMaxBytes, cfg.FetchTimeout)

	hub := websocket.NewHub(bus, coordinator, clips, logger)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(client, settingsSvc),
		Account:  handler.NewAccountHandler(client, settingsSvc),
		Folders:  handler.NewFolderHandler(client, settingsSvc, resolver),
		Uploads:  handler.NewUploadHandler(coordinator),
		Clips:    handler.NewClipHandler(clips),
		Settings: handler.NewSettingsHandler(settingsSvc, matcher),
		License:  handler.NewLicenseHandler(licenses),
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(cfg, handlers, hub, promRegistry),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server:    server,
		db:        db,
		cancelHub: cancelHub,
		cleanupFuncs: []func(){
			coordinator.Wait,
		},
	}, nil
}

// Run serves until SIGINT or SIGTERM, then drains in-flight work.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.shutdown()
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown", "error", err)
	}

	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	a.cancelHub()
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
	if a.db != nil {
		a.db.Close()
	}
}
