package commands

import (
	"log/slog"

	"obswatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs a single poll cycle: scrape, notify about new grades, commit the snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		service, database, err := cfg.service()
		if err != nil {
			serviceutil.Fatal("failed to initialize service", err)
		}
		defer database.Close()

		err = service.Check(cmd.Context())
		if err != nil {
			serviceutil.Fatal("check cycle failed", err)
		}
		slog.Info("check cycle complete")
	},
}
