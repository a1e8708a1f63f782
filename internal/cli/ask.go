package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/lexcorpus-backend/internal/services"
)

var (
	askSession string
	askCountry string
	askUser    string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a question against the corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id to continue (default: latest session)")
	askCmd.Flags().StringVar(&askCountry, "country", "", "jurisdiction for the answer")
	askCmd.Flags().StringVar(&askUser, "user", "lexctl", "user id the session belongs to")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	var sessionID uuid.UUID
	if askSession != "" {
		id, err := uuid.Parse(askSession)
		if err != nil {
			return fmt.Errorf("--session must be a uuid: %w", err)
		}
		sessionID = id
	}
	res, err := chatService.Ask(cmd.Context(), services.AskRequest{
		UserID:    askUser,
		SessionID: sessionID,
		Message:   args[0],
		Country:   askCountry,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	if askJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(res.Answer)
	if len(res.References.Laws) > 0 {
		cmd.Println()
		cmd.Println("Laws:")
		for _, l := range res.References.Laws {
			cmd.Printf("  - %s\n", l)
		}
	}
	if len(res.References.Cases) > 0 {
		cmd.Println()
		cmd.Println("Cases:")
		for _, c := range res.References.Cases {
			cmd.Printf("  - %s\n", c)
		}
	}
	cmd.Printf("\nsession %s\n", res.SessionID)
	return nil
}
