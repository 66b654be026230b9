package commands

import (
	"galerts/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var (
	createTerm  string
	createExact bool
	createFlags monitorFlags
)

func init() {
	createCmd.Flags().StringVar(&createTerm, "term", "", "The keyword or phrase to watch.")
	createCmd.Flags().BoolVar(&createExact, "exact", false, "Only match the exact phrase, the term is stored quoted.")
	createFlags.register(createCmd.Flags())
	createCmd.MarkFlagRequired("term")
	createCmd.MarkFlagRequired("delivery")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create --term <term> --delivery {rss,mail} [--exact]",
	Short: "Creates a monitor.",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := createFlags.options()
		if err != nil {
			serviceutil.Fatal("invalid options", err)
		}
		opts.Exact = createExact

		a := connect(cmd.Context())
		defer a.Close()

		monitors, err := a.repo.Create(cmd.Context(), createTerm, opts)
		if err != nil {
			serviceutil.Fatal("failed to create monitor", err)
		}
		renderMonitors(monitors)
	},
}
