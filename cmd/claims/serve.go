package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/handler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the claims HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		// --- Router ---
		router := handler.NewRouter(a.claims, a.connectivity, a.bulkhead,
			handler.RouterConfig{MaxUploadBytes: a.cfg.MaxUploadBytes()}, a.metrics, a.logger)

		// --- Server ---
		// WriteTimeout leaves room for a full multi-batch submission.
		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", a.cfg.Port),
			Handler:      router,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}

		// --- Graceful shutdown ---
		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("server starting", zap.Int("port", a.cfg.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				a.logger.Error("server failed", zap.Error(err))
				return err
			}
		case <-ctx.Done():
		}

		a.logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server forced shutdown", zap.Error(err))
			return err
		}

		a.logger.Info("server stopped")
		return nil
	},
}
