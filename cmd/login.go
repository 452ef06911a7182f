// -- cmd/login.go --
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xanderpitz/billhawk/pkg/portal"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Establish (or confirm) an authenticated portal session",
	Long: `Restores the stored session if one exists and the portal still accepts
it, otherwise performs a fresh credential login and persists the new
session for later commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newPortalClient()
		if err != nil {
			return err
		}
		defer shutdownClient(client)

		result, err := client.Login(cmd.Context())
		if err != nil {
			return err
		}

		if result.NewLogin {
			fmt.Println("Logged in with credentials; session stored.")
		} else {
			fmt.Println("Existing session is still valid.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

// shutdownClient releases the shared browser with a bounded deadline.
func shutdownClient(client *portal.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client.Shutdown(ctx)
}
