package commands

import (
	"encoding/json"
	"fmt"
	"galerts/internal/components/credentials"
	"galerts/internal/components/sessionstore"
	"galerts/pkg/serviceutil"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var sessionFile string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manages the persisted browser session.",
}

func init() {
	sessionImportCmd.Flags().StringVar(&sessionFile, "file", "", "JSON file holding an array of {\"host\", \"name\", \"value\"} cookies.")
	sessionImportCmd.MarkFlagRequired("file")

	sessionCmd.AddCommand(sessionImportCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	rootCmd.AddCommand(sessionCmd)
}

// readCookies parses a cookie export, every cookie needs a host and a name.
func readCookies(path string) ([]sessionstore.Cookie, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cookies []sessionstore.Cookie
	err = json.Unmarshal(contents, &cookies)
	if err != nil {
		return nil, fmt.Errorf("parse cookie file: %w", err)
	}
	for i, c := range cookies {
		if c.Host == "" || c.Name == "" {
			return nil, fmt.Errorf("cookie %d: host and name are required", i)
		}
	}
	return cookies, nil
}

var sessionImportCmd = &cobra.Command{
	Use:   "import --file <cookies.json>",
	Short: "Imports the cookies of a session signed in with a browser.",
	Long: "Imports the cookies of a session signed in with a browser. " +
		"Use this when signing in with a password is blocked by a captcha.",
	Run: func(cmd *cobra.Command, args []string) {
		cookies, err := readCookies(sessionFile)
		if err != nil {
			serviceutil.Fatal("failed to read cookies", err)
		}

		store := openSessionStore()
		err = store.Save(cmd.Context(), cookies)
		store.Close()
		if err != nil {
			serviceutil.Fatal("failed to save session", err)
		}

		a := connect(cmd.Context())
		defer a.Close()
		fmt.Printf("Imported %d cookies, the session is signed in.\n", len(cookies))
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forgets the persisted session, the next command signs in again.",
	Run: func(cmd *cobra.Command, args []string) {
		creds, _ := credentials.NewStore(configDir).Load()
		store := openSessionStore()
		defer store.Close()

		session := newSession(store, creds)
		err := session.Logout(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to clear session", err)
		}
		fmt.Println("Session cleared.")
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows when the persisted session was saved.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openSessionStore()
		defer store.Close()

		cookies, err := store.Load(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read session", err)
		}
		savedAt, ok, err := store.SavedAt(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read session", err)
		}
		if !ok {
			fmt.Println("No session saved.")
			return
		}
		fmt.Printf(
			"%d cookies saved %s (%s ago).\n",
			len(cookies),
			savedAt.Format(time.RFC1123),
			time.Since(savedAt).Round(time.Second),
		)
	},
}
