package commands

import (
	"context"
	"log/slog"
	"time"

	"obswatch/lib/serviceutil"
	"obswatch/lib/telemetry"
	"obswatch/services/gradewatch"
	"obswatch/services/notify"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runCycle(ctx context.Context, service *gradewatch.Service, notifier notify.Notifier) {
	err := service.Check(ctx)
	if err == nil {
		return
	}
	slog.ErrorContext(ctx, "check cycle failed", "err", err.Error())

	// best effort, a broken transport shouldn't kill the watcher
	sendErr := notifier.Send(ctx, notify.FormatError(err))
	if sendErr != nil {
		slog.ErrorContext(ctx, "failed to report cycle error", "err", sendErr.Error())
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Polls the portal on an interval until interrupted, notifying about new grades.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		notifier, err := cfg.notifier()
		if err != nil {
			serviceutil.Fatal("failed to initialize notifier", err)
		}
		service, database, err := cfg.service()
		if err != nil {
			serviceutil.Fatal("failed to initialize service", err)
		}
		defer database.Close()

		ctx := serviceutil.SignalContext()
		telemetry.InstrumentPerfStats(ctx)

		err = notifier.Send(ctx, notify.FormatStartup(cfg.CheckIntervalMinutes))
		if err != nil {
			serviceutil.Fatal("failed to send startup message", err)
		}

		slog.Info("watching for new grades", "interval_minutes", cfg.CheckIntervalMinutes)
		runCycle(ctx, service, notifier)

		ticker := time.NewTicker(time.Minute * time.Duration(cfg.CheckIntervalMinutes))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("shutting down")
				return
			case <-ticker.C:
				runCycle(ctx, service, notifier)
			}
		}
	},
}
