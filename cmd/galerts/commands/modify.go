package commands

import (
	"galerts/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var (
	modifyId    string
	modifyRssId string
	modifyFlags monitorFlags
)

func init() {
	modifyCmd.Flags().StringVar(&modifyId, "id", "", "The id of the monitor to modify.")
	modifyCmd.Flags().StringVar(&modifyRssId, "rss-id", "", "Feed id (or rss link) to keep for a feed monitor. (default the current feed)")
	modifyFlags.register(modifyCmd.Flags())
	modifyCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(modifyCmd)
}

var modifyCmd = &cobra.Command{
	Use:   "modify --id <id> [--delivery {rss,mail}] [--match {all,best}] [--frequency <frequency>]",
	Short: "Modifies a monitor, options that are not given keep their current value.",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := modifyFlags.options()
		if err != nil {
			serviceutil.Fatal("invalid options", err)
		}
		opts.RSSID = modifyRssId

		a := connect(cmd.Context())
		defer a.Close()

		monitors, err := a.repo.Modify(cmd.Context(), modifyId, opts)
		if err != nil {
			serviceutil.Fatal("failed to modify monitor", err)
		}
		renderMonitors(monitors)
	},
}
