// Package server initializes and runs the application server. It wires
// the database, object storage, attempt throttle and metrics together,
// starts the HTTP endpoint and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/config"
	"github.com/avolkonsky/cloudvault/internal/server/httpapi"
	"github.com/avolkonsky/cloudvault/internal/server/metrics"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/repomanager"
	"github.com/avolkonsky/cloudvault/internal/server/services"
	"github.com/avolkonsky/cloudvault/internal/server/storage"
	"github.com/avolkonsky/cloudvault/internal/server/throttle"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	remote, err := storage.NewS3Backend(ctx, storage.S3Config{
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	var local *storage.LocalBackend
	if cfg.LocalStoragePath != "" {
		local, err = storage.NewLocalBackend(cfg.LocalStoragePath)
		if err != nil {
			return nil, fmt.Errorf("local storage init error: %w", err)
		}
	} else {
		logger.Warn(ctx, "local fallback disabled, uploads fail when the object store is down")
	}

	var thr throttle.Throttle
	if cfg.RedisAddr != "" {
		client, err := throttle.Connect(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		thr = throttle.NewRedisThrottle(client)
	} else {
		logger.Warn(ctx, "using in-process attempt throttle, lockouts do not hold across processes")
		thr = throttle.NewMemoryThrottle()
	}

	m := metrics.New()
	gw := storage.NewGateway(remote, local, cfg.StorageTimeout, logger, m)

	fileSvc := services.NewFileService(db, rm, gw, logger, m)
	folderSvc := services.NewFolderService(db, rm)
	shareSvc := services.NewShareService(db, rm, gw, thr,
		cfg.MaxPasswordAttempts, cfg.LockoutWindow, logger, m)

	h := httpapi.NewHandler(fileSvc, folderSvc, shareSvc, []byte(cfg.SecretKey), logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		handler: httpapi.NewRouter(h, m),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddrHTTP)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http shutdown", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}

	return nil
}
