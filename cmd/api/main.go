package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/moovi-app/moovi_auth/internal/config"
	"github.com/moovi-app/moovi_auth/internal/infra"
	"github.com/moovi-app/moovi_auth/internal/logging"
	"github.com/moovi-app/moovi_auth/internal/server"
)

const usage = "usage: api [serve|migrate]"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	switch cmd {
	case "serve":
		if err := serve(cfg, logger); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case "migrate":
		if err := migrate(cfg); err != nil {
			logger.Error("migrate", "error", err)
			os.Exit(1)
		}
		logger.Info("schema up to date")
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func migrate(cfg config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set to migrate")
	}
	ctx := context.Background()
	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return infra.Migrate(ctx, db)
}

func serve(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	res, err := infra.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close(logger)

	srv, err := server.New(cfg, res.DB, res.Cache, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server exited cleanly")
	return nil
}
