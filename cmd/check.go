package cmd

import (
	"fmt"

	"github.com/jmehdipour/formdesk/internal/config"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/submitter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify helpdesk URL and credentials against the live API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		settings := cfg.Settings()
		if err := submitter.CheckCredentials(cmd.Context(), settings); err != nil {
			return fmt.Errorf("helpdesk check failed: %w", err)
		}

		logger.Log.Info("helpdesk credentials valid",
			zap.String("vendor", settings.Vendor),
			zap.String("base_url", settings.BaseURL))
		return nil
	},
}
