package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eringen/edupress"
	"github.com/eringen/edupress/repository"
)

// cliState carries flags and the loaded configuration between commands.
type cliState struct {
	configPath string
	logLevel   string
	output     string

	cfg *edupress.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	cmd := &cobra.Command{
		Use:           "edupress",
		Short:         "EduPress publishes articles into a Git repository and serves them back",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(st.output); err != nil {
				return err
			}
			cfg, err := edupress.LoadConfig(st.configPath)
			if err != nil {
				return err
			}
			level, err := parseLogLevel(selectedLogLevel(st.logLevel, cfg.LogLevel))
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(level))
			st.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&st.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&st.output, "output", "o", "text", "output format (text, json, yaml)")

	cmd.AddCommand(
		newServeCmd(st),
		newListCmd(st),
		newShowCmd(st),
		newPublishCmd(st),
		newVersionCmd(),
	)
	return cmd
}

// openRepository connects to the configured store. Callers must call the
// returned close function.
func (st *cliState) openRepository(ctx context.Context) (*repository.Repository, func() error, error) {
	if st.cfg == nil {
		return nil, nil, fmt.Errorf("config not initialized")
	}
	if err := st.cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}
	store, closeStore, err := edupress.OpenStore(ctx, st.cfg)
	if err != nil {
		return nil, nil, err
	}
	return edupress.NewRepository(st.cfg, store, slog.Default()), closeStore, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the edupress version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "edupress %s\n", version)
			return err
		},
	}
}
