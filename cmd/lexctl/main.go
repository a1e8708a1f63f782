package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/lexcorpus-backend/internal/app"
	"github.com/yungbote/lexcorpus-backend/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lexctl: %v\n", err)
		os.Exit(1)
	}

	cli.Configure(cli.Services{
		Documents: a.Services.Documents,
		Search:    a.Services.Search,
		Chat:      a.Services.Chat,
		Auth:      a.Services.Auth,
	})
	err = cli.ExecuteContext(ctx)
	a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lexctl: %v\n", err)
		os.Exit(1)
	}
}
