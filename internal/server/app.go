// Package server initializes and runs the auth service: it wires the
// configuration, session store, Identity Directory client and
// orchestrator together, starts the HTTP endpoint, and handles graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avdeev/driveauth/internal/auth"
	"github.com/avdeev/driveauth/internal/directory"
	"github.com/avdeev/driveauth/internal/logging"
	"github.com/avdeev/driveauth/internal/server/config"
	"github.com/avdeev/driveauth/internal/server/web"
	"github.com/avdeev/driveauth/internal/session"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler *web.Handler
	db      *sql.DB
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var (
		store session.Store
		db    *sql.DB
	)
	if cfg.DatabaseDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := session.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("db migration error: %w", err)
		}
		store = session.NewPostgresStore(db)
	} else {
		store = session.NewMemoryStore()
	}

	sessions := session.NewManager(store, cfg.SessionTTL, cfg.RememberTTL)
	dir := directory.NewHTTPClient(cfg.DirectoryBaseURL, cfg.DirectoryToken, cfg.DirectoryTimeout)
	svc := auth.NewService(dir, sessions, logger)
	handler := web.NewHandler(svc, sessions, []byte(cfg.SessionSecret),
		cfg.SessionTTL, cfg.RememberTTL, logger)

	return &App{config: cfg, logger: logger, handler: handler, db: db}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "server shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "listening", "addr", app.config.EndpointAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		_ = app.db.Close()
	}
}
