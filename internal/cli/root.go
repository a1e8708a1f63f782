// Package cli implements lexctl, the operator command line for the corpus.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/lexcorpus-backend/internal/services"
)

// Services the commands drive. Set by Configure before ExecuteContext.
var (
	documentService services.DocumentService
	searchService   services.SearchService
	chatService     services.ChatService
	authService     services.AuthService
)

var rootCmd = &cobra.Command{
	Use:           "lexctl",
	Short:         "Operate the legal document corpus",
	Long:          `lexctl ingests PDF folders, runs searches and questions against the corpus, and mints dev tokens.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

type Services struct {
	Documents services.DocumentService
	Search    services.SearchService
	Chat      services.ChatService
	Auth      services.AuthService
}

func Configure(s Services) {
	documentService = s.Documents
	searchService = s.Search
	chatService = s.Chat
	authService = s.Auth
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
