package commands

import (
	"fmt"
	"galerts/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var (
	deleteId   string
	deleteTerm string
)

func init() {
	deleteCmd.Flags().StringVar(&deleteId, "id", "", "The id of the monitor to delete.")
	deleteCmd.Flags().StringVar(&deleteTerm, "term", "", "The term of the monitor to delete.")
	deleteCmd.MarkFlagsOneRequired("id", "term")
	deleteCmd.MarkFlagsMutuallyExclusive("id", "term")
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete {--id <id> | --term <term>}",
	Short: "Deletes a monitor.",
	Run: func(cmd *cobra.Command, args []string) {
		a := connect(cmd.Context())
		defer a.Close()

		var err error
		if deleteId != "" {
			_, err = a.repo.Delete(cmd.Context(), deleteId)
		} else {
			_, err = a.repo.DeleteByTerm(cmd.Context(), deleteTerm)
		}
		if err != nil {
			serviceutil.Fatal("failed to delete monitor", err)
		}
		fmt.Println("Monitor deleted.")
	},
}
