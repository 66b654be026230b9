package commands

import (
	"galerts/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var listTerm string

func init() {
	listCmd.Flags().StringVar(&listTerm, "term", "", "Only list monitors with exactly this term.")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [--term <term>]",
	Short: "Lists the monitors of the account.",
	Run: func(cmd *cobra.Command, args []string) {
		a := connect(cmd.Context())
		defer a.Close()

		monitors, err := a.repo.List(cmd.Context(), listTerm)
		if err != nil {
			serviceutil.Fatal("failed to list monitors", err)
		}
		renderMonitors(monitors)
	},
}
