package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/pipeline"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

const defaultIngestedLog = ".ingested.log"

var (
	ingestCountry string
	ingestType    string
	ingestUser    string
	ingestLogPath string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder]",
	Short: "Ingest every PDF in a folder",
	Long: `Ingests each .pdf file in the folder that is not yet listed in the ingested log.
Successful files are appended to the log so reruns skip them. Duplicates are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCountry, "country", "", "jurisdiction of the documents")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "document type (act, constitution, case...)")
	ingestCmd.Flags().StringVar(&ingestUser, "user", "lexctl", "user id recorded as uploader")
	ingestCmd.Flags().StringVar(&ingestLogPath, "log", "", "ingested log path (default $INGESTED_LOG or <folder>/.ingested.log)")
	rootCmd.AddCommand(ingestCmd)
}

type ingestSummary struct {
	Ingested   int
	Skipped    int
	Duplicates int
	Failed     int
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	folder := args[0]
	logPath := ingestLogPath
	if logPath == "" {
		logPath = strings.TrimSpace(os.Getenv("INGESTED_LOG"))
	}
	if logPath == "" {
		logPath = filepath.Join(folder, defaultIngestedLog)
	}

	sum, err := ingestFolder(cmd.Context(), cmd, folder, logPath)
	if err != nil {
		return err
	}
	cmd.Printf("Done: %d ingested, %d already logged, %d duplicates, %d failed\n",
		sum.Ingested, sum.Skipped, sum.Duplicates, sum.Failed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d file(s) failed", sum.Failed)
	}
	return nil
}

func ingestFolder(ctx context.Context, cmd *cobra.Command, folder, logPath string) (ingestSummary, error) {
	var sum ingestSummary
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return sum, fmt.Errorf("read folder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	done, err := readIngestedLog(logPath)
	if err != nil {
		return sum, err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return sum, fmt.Errorf("open ingested log: %w", err)
	}
	defer logFile.Close()

	for _, name := range files {
		if done[name] {
			sum.Skipped++
			continue
		}
		data, err := os.ReadFile(filepath.Join(folder, name))
		if err != nil {
			cmd.PrintErrf("  %s: %v\n", name, err)
			sum.Failed++
			continue
		}
		res, err := documentService.Ingest(ctx, pipeline.Request{
			Data:         data,
			Filename:     name,
			UserID:       ingestUser,
			Country:      ingestCountry,
			DocumentType: ingestType,
		})
		var dup *services.DuplicateDocumentError
		switch {
		case errors.As(err, &dup):
			cmd.Printf("  %s: duplicate of %s, skipped\n", name, dup.ExistingID)
			sum.Duplicates++
		case err != nil:
			cmd.PrintErrf("  %s: %v\n", name, err)
			sum.Failed++
		case res.Status != documents.StatusProcessed:
			cmd.PrintErrf("  %s: finished with status %s\n", name, res.Status)
			sum.Failed++
		default:
			cmd.Printf("  %s: %d/%d chunks\n", name, res.ChunksProcessed, res.ChunksTotal)
			if _, err := fmt.Fprintln(logFile, name); err != nil {
				return sum, fmt.Errorf("append ingested log: %w", err)
			}
			sum.Ingested++
		}
	}
	return sum, nil
}

func readIngestedLog(path string) (map[string]bool, error) {
	done := map[string]bool{}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return done, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ingested log: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			done[line] = true
		}
	}
	return done, sc.Err()
}
