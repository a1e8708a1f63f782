package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Mint a bearer token for a user (development)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}
	tok, exp, err := authService.IssueToken(args[0])
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	cmd.Println(tok)
	cmd.PrintErrf("expires %s\n", exp.UTC().Format(time.RFC3339))
	return nil
}
