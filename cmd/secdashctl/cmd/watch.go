package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/secdash/internal/inbox"
	"github.com/good-yellow-bee/secdash/internal/ingest"
	"github.com/good-yellow-bee/secdash/internal/notifier"
)

var (
	watchSettle time.Duration
	watchSource string
	watchNotify notifier.Config
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import every file dropped into a directory",
	Long: `Watch an inbox directory and import each file once it stops changing.
Imported files move to <dir>/processed, rejected ones to <dir>/failed.
Files already in the directory are imported on start.

Example:
  secdashctl watch /srv/secdash/inbox --settle 5s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(true)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := ingest.NewService(store)
		dispatcher, err := notifier.New(watchNotify)
		if err != nil {
			return err
		}
		defer dispatcher.Close()
		if dispatcher.Len() > 0 {
			svc.SetListener(dispatcher)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		w, err := inbox.New(args[0], func(ctx context.Context, path string) error {
			res, err := importFile(ctx, svc, ingest.Source(watchSource), path)
			if res != nil {
				for _, e := range res.Errors {
					PrintVerbose("  %s: %s", path, e)
				}
			}
			return err
		}, &inbox.Options{Settle: watchSettle})
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()

		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", args[0])
		for {
			select {
			case <-ctx.Done():
				fmt.Fprintln(os.Stderr, "Stopping watcher")
				return nil
			case res, ok := <-w.Results():
				if !ok {
					return nil
				}
				if res.Err != nil {
					fmt.Printf("%s FAIL  %s: %s\n", res.Time.Format(time.RFC3339), res.Path, firstLine(res.Err.Error()))
					continue
				}
				fmt.Printf("%s OK    %s -> %s\n", res.Time.Format(time.RFC3339), res.Path, res.Dest)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "quiet period before a file is imported")
	watchCmd.Flags().StringVar(&watchNotify.SlackWebhook, "slack-webhook", "", "post failed imports to this Slack webhook")
	watchCmd.Flags().StringVar(&watchNotify.TeamsWebhook, "teams-webhook", "", "post failed imports to this Teams webhook")
	watchCmd.Flags().BoolVar(&watchNotify.RowErrors, "notify-row-errors", false, "also notify imports that skipped rows")
	watchCmd.Flags().IntVar(&watchNotify.PerMinute, "notify-per-minute", 10, "notification rate limit")
	watchCmd.Flags().StringVar(&watchSource, "source", "", "require every file to classify as this source")
}
