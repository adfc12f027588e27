package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/pkg/config"
	"github.com/noah-isme/ccrm-api/pkg/logger"
)

// @title CCRM API
// @version 1.0.0
// @description Campus course and records management
// @BasePath /
// @schemes http

// app holds state shared by every subcommand once the root pre-run finished.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ccrm",
		Short:         "Campus course and records management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			for _, warning := range cfg.Warnings {
				logr.Warn("configuration value rejected", zap.String("detail", warning))
			}
			a.cfg, a.logger = cfg, logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "properties file (default "+config.DefaultFile+")")

	root.AddCommand(newServeCmd(a), newBackupCmd(a), newCheckCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
