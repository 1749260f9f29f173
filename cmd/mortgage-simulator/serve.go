package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/mortgage-simulator/internal/auth"
	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/iwvelando/mortgage-simulator/internal/document"
	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/iwvelando/mortgage-simulator/internal/server"
	"github.com/iwvelando/mortgage-simulator/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web simulator and the proposal API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if address != "" {
				conf.Server.Address = address
			}
			return runServe(cmd.Context(), conf, logger)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address override, e.g. :8080")
	return cmd
}

// openProposals opens the configured store and wires the proposal service on
// top of it. The caller closes the returned store.
func openProposals(ctx context.Context, conf *config.Configuration, logger *zap.Logger) (*proposal.Service, storage.Store, error) {
	store, err := storage.Open(ctx, conf.Storage, logger)
	if err != nil {
		return nil, nil, err
	}

	service := proposal.NewService(store, document.NewRenderer(conf.Document), logger, proposal.Options{
		MaxAttempts:       conf.Persistence.MaxAttempts,
		BaseDelay:         conf.Persistence.BaseDelay,
		MaxSignatureBytes: conf.Document.MaxSignatureBytes,
	})
	return service, store, nil
}

func runServe(ctx context.Context, conf *config.Configuration, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	proposals, store, err := openProposals(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store",
				zap.String("op", "main.runServe"),
				zap.Error(err),
			)
		}
	}()

	opts, err := server.OptionsFromConfig(conf, version)
	if err != nil {
		return fmt.Errorf("invalid server options: %w", err)
	}

	authService := auth.NewService(conf.Auth)
	if !authService.Enabled() {
		logger.Warn("auth.jwtSecret is not set; the admin API is disabled",
			zap.String("op", "main.runServe"),
		)
	}

	srv := &http.Server{
		Addr:         conf.Server.Address,
		Handler:      server.NewHandler(logger, proposals, store, authService, opts),
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main.runServe"),
			zap.String("address", conf.Server.Address),
			zap.String("storage", conf.Storage.Driver),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server",
		zap.String("op", "main.runServe"),
	)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
