package commands

import (
	"context"
	"fmt"
	"galerts/internal/components/credentials"
	"galerts/internal/components/telemetry"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
	dumpHttp  string
)

var tel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:           "galerts",
	Short:         "galerts manages the monitors of an Alerts account from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "galerts")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}

		if configDir == "" {
			configDir, err = credentials.DefaultDir()
			if err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configDir, "config-dir", "", "Directory holding config.json and session.db. (default ~/.config/google_alerts, or $GALERTS_CONFIG_DIR)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	flags.StringVar(&dumpHttp, "dump-http", "", "Write every http request and response to files in this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
