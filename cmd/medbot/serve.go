package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/msenthi7/medical-chatbot/app"
	"github.com/msenthi7/medical-chatbot/config"
	"github.com/msenthi7/medical-chatbot/routes"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serveLongDesc string = `Start the chat web server.

Serves the chat page at /, the plain-text chat route at /get and the
JSON API under /api/v1. Stops gracefully on SIGINT or SIGTERM.

Examples:
  medbot serve
  PORT=9000 CHAT_PROVIDER=anthropic CHAT_MODEL=claude-sonnet-4-5 medbot serve`

const serveShortDesc string = "Run the HTTP server"

type serveCommander struct{}

func newServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	return &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx)
		},
	}
}

func (c *serveCommander) run(ctx context.Context) error {
	logger, err := initLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.New(ctx)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           routes.SetupRoutes(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("medbot listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("version", app.Version),
			zap.Bool("tls", cfg.Server.TLS.Enabled))

		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server error", zap.Error(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error("dependency shutdown failed", zap.Error(err))
	}

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	logger.Info("server stopped")
	return nil
}
