package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/edupress"
	"github.com/eringen/edupress/identity"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(st *cliState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := slog.Default().With("component", "server")

			validator, err := identity.NewHS256Validator(cfg.JWTSecret)
			if err != nil {
				return err
			}
			repo, closeStore, err := st.openRepository(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			app := edupress.New(*cfg, repo, validator, edupress.WithLogger(logger))

			errCh := make(chan error, 1)
			go func() { errCh <- app.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
