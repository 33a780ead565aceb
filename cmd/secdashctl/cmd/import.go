package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/secdash/internal/batch"
	"github.com/good-yellow-bee/secdash/internal/ingest"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

var (
	importSource   string
	importMaxBytes int64
	importWorkers  int
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import tool exports into the database",
	Long: `Import files through the same pipeline as the upload API. Each file
is classified by name, validated, and recorded in the ingestion log.

Examples:
  # Import by filename
  secdashctl import Falcon_Detections_20250630.csv

  # Require every file to be a Tenable export
  secdashctl import --source tenable exports/Tenable_*.csv

  # Read four files at a time
  secdashctl import --workers 4 exports/*`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(true)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := ingest.NewService(store)
		failed := importFiles(cmd.Context(), svc, ingest.Source(importSource), args, importWorkers, cmd.OutOrStdout())
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

// fileImporter is the part of ingest.Service the commands use.
type fileImporter interface {
	ImportAs(ctx context.Context, source ingest.Source, filename string, content []byte) (*ingest.Result, error)
}

// importFile reads path and imports it under its base name. A result
// with no accepted rows is reported as an error.
func importFile(ctx context.Context, svc fileImporter, source ingest.Source, path string) (*ingest.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if importMaxBytes > 0 && info.Size() > importMaxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", importMaxBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	res, err := svc.ImportAs(ctx, source, filepath.Base(path), content)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("already imported")
		}
		return nil, err
	}
	if res.Count == 0 {
		return res, fmt.Errorf("no rows imported: %s", strings.Join(res.Errors, "; "))
	}
	return res, nil
}

// importFiles imports paths with the given parallelism and prints one
// line per file in argument order. It returns the number of files that
// failed.
func importFiles(ctx context.Context, svc fileImporter, source ingest.Source, paths []string, workers int, w io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}

	results := batch.ImportAll(ctx, workers, paths, func(ctx context.Context, path string) (*ingest.Result, error) {
		return importFile(ctx, svc, source, path)
	})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %s\n", r.Path, firstLine(r.Err.Error()))
			continue
		}
		res := r.Result
		fmt.Fprintf(w, "OK    %s: %d rows (%s, ingestion %s)\n", r.Path, res.Count, res.Source, res.IngestionID)
		for _, e := range res.Errors {
			fmt.Fprintf(w, "      %s\n", e)
		}
	}
	return failed
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importSource, "source", "", "require every file to classify as this source")
	importCmd.Flags().Int64Var(&importMaxBytes, "max-bytes", 32<<20, "largest file accepted")
	importCmd.Flags().IntVar(&importWorkers, "workers", 1, "files imported in parallel (0 = one per CPU)")
}
