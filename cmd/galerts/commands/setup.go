package commands

import (
	"fmt"
	"galerts/internal/components/credentials"
	"galerts/pkg/serviceutil"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	setupEmail    string
	setupPassword string
	setupVerify   bool
)

func init() {
	setupCmd.Flags().StringVar(&setupEmail, "email", "", "Email of the account.")
	setupCmd.Flags().StringVar(&setupPassword, "password", "", "Password of the account.")
	setupCmd.Flags().BoolVar(&setupVerify, "verify", true, "Sign in right away to check the credentials.")
	setupCmd.MarkFlagRequired("email")
	setupCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup --email <email> --password <password>",
	Short: "Stores the credentials of the account.",
	Long: "Stores the credentials of the account in the config directory. " +
		"The password is only obfuscated, not encrypted, use a throwaway account.",
	Run: func(cmd *cobra.Command, args []string) {
		store := credentials.NewStore(configDir)
		err := store.Save(credentials.Credentials{
			Email:    setupEmail,
			Password: setupPassword,
		})
		if err != nil {
			serviceutil.Fatal("failed to save credentials", err)
		}
		slog.Debug("saved credentials", "dir", store.Dir())

		// a session of another account must not be restored
		sessions := openSessionStore()
		err = sessions.Clear(cmd.Context())
		sessions.Close()
		if err != nil {
			serviceutil.Fatal("failed to clear previous session", err)
		}

		if !setupVerify {
			return
		}
		a := connect(cmd.Context())
		defer a.Close()
		monitors, err := a.repo.List(cmd.Context(), "")
		if err != nil {
			serviceutil.Fatal("failed to list monitors", err)
		}
		fmt.Printf("Signed in as %s, the account has %d monitors.\n", setupEmail, len(monitors))
	},
}
