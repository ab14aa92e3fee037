// Package server initializes and runs the reference collector: the HTTP
// submission endpoint backed by PostgreSQL rows and S3 photos, and the gRPC
// health service. It handles graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/dmitrijs2005/fieldreport/internal/server/config"
	"github.com/dmitrijs2005/fieldreport/internal/server/handler"
	"github.com/dmitrijs2005/fieldreport/internal/server/repositories/rows"
	"github.com/dmitrijs2005/fieldreport/internal/server/storage"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/fieldreport/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler *handler.Handler
	health  *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, err := rows.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := storage.NewS3Store(ctx, storage.Settings{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	h := handler.New(rows.NewPostgresRepository(db), blobs, logger,
		handler.WithPlainResponse(c.PlainResponse),
		handler.WithMaxUploadBytes(c.MaxUploadBytes),
	)

	app := newApp(c, logger, h)
	app.db = db
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, h *handler.Handler) *App {
	app := &App{config: c, logger: logger, handler: h}
	if c.HealthAddr != "" {
		app.health = gs.NewHealthServer(c.HealthAddr, logger)
	}
	return app
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// serveHTTP serves the submission endpoint on lis until ctx is done, then
// drains in-flight requests.
func (app *App) serveHTTP(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) run(ctx context.Context, lis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.serveHTTP(gctx, lis)
	})
	if app.health != nil {
		g.Go(func() error {
			return app.health.Run(gctx)
		})
	}

	err := g.Wait()
	if app.db != nil {
		_ = app.db.Close()
	}
	return err
}

// Run blocks until a termination signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	lis, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return err
	}

	return app.run(ctx, lis)
}
