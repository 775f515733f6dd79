package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"temporalos-be/internal/bootstrap"
	"temporalos-be/internal/config"
	"temporalos-be/internal/server"
	"temporalos-be/internal/tracer"
	"temporalos-be/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Database is optional; sessions fall back to memory without it
	var gormDB *gorm.DB
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	switch {
	case errors.Is(err, database.ErrNoDSN):
		log.Println("No DB_CONNECTION_STRING set, using in-memory session store")
	case err != nil:
		log.Printf("Unable to connect to database, using in-memory session store: %v", err)
	default:
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, gormDB, cfg)
	defer container.Logger.Sync()

	shutdownTracer := tracer.InitTracer(ctx, cfg.Otel, container.Logger)

	// 4. Run server and background workers until a signal arrives
	srv := server.New(cfg, container)
	container.Scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(func() error {
		return container.WebSocketHub.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		container.Logger.Info("MAIN", "Shutting down", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		container.Registry.Close()
		container.Scheduler.Stop()
		container.Close()
		_ = shutdownTracer(shutdownCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		container.Logger.Error("MAIN", "Server stopped with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
