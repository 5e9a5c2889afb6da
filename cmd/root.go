package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/formdesk/cmd/worker"
	"github.com/jmehdipour/formdesk/internal/config"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:           "formdesk",
		Short:         "Form submissions to helpdesk conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return logger.Init(cfg.Log.Level)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Log.Sync()
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}
