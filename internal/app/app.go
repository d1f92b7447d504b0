package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/config"
	"github.com/klokku/cycleledger/internal/database"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

// Application wires configuration, database, router, background workers, and server lifecycle.
type Application struct {
	cfg    config.Application
	db     *pgxpool.Pool
	deps   *Dependencies
	router *mux.Router
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication() (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}
	if cfg.Database.QueryTimeout > 0 {
		utils.DefaultQueryTimeout = cfg.Database.QueryTimeout
	}
	decimal.MarshalJSONWithoutQuotes = true

	// DB + migrations
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cfg.Database); err != nil {
		db.Close()
		return nil, err
	}

	r := mux.NewRouter()

	// Build dependencies (services, handlers, workers...)
	deps, err := BuildDependencies(context.Background(), db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Middleware chain
	SetupMiddleware(r, deps, cfg)

	// Routes
	RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Http.Addr,
		WriteTimeout: cfg.Http.WriteTimeout,
		ReadTimeout:  cfg.Http.ReadTimeout,
		IdleTimeout:  cfg.Http.IdleTimeout,
	}

	return &Application{cfg: cfg, db: db, deps: deps, router: r, srv: srv}, nil
}

// Run starts background workers and the HTTP server, and blocks until SIGINT or SIGTERM.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.deps.NotificationConsumer != nil {
		go func() {
			if err := a.deps.NotificationConsumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("notification consumer stopped: %v", err)
			}
		}()
	}
	if a.deps.Scheduler != nil {
		go a.deps.Scheduler.Start(ctx)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		serveErr <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			a.close()
			return err
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)
	a.close()
	return err
}

func (a *Application) close() {
	a.deps.Close()
	a.db.Close()
	log.Info("Application stopped")
}
