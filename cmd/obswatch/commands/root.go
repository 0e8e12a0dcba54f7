package commands

import (
	"context"
	"fmt"
	"os"

	"obswatch/lib/captcha"
	"obswatch/lib/restyutil"
	"obswatch/lib/scrapers/obs"
	"obswatch/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "obswatch",
	Short: "obswatch polls a university OBS portal for exam grades and notifies about new ones.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
		if *verbose {
			obs.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/obs"))
			captcha.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/captcha"))
		}
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enables debug logging and http request/response dumps under .dev/resty.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
