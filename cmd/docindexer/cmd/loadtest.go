package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/loadtest"
)

func newLoadtestCmd(opts *options) *cobra.Command {
	cfg := loadtest.Config{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Replay search queries against a running server and report latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.BaseURL == "" {
				cfg.BaseURL = fmt.Sprintf("http://localhost:%d", opts.cfg.Server.Port)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target:      %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", cfg.Concurrency)
			fmt.Fprintf(out, "Duration:    %s\n\n", cfg.Duration)

			report, err := loadtest.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			report.Write(out)
			if report.Total == 0 {
				return fmt.Errorf("no requests completed against %s", cfg.BaseURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "", "server base URL (default http://localhost:<server.port>)")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&cfg.Limit, "limit", 10, "results per query")
	cmd.Flags().StringSliceVar(&cfg.Queries, "query", nil, "query to replay, repeatable (default a built-in French mix)")
	return cmd
}
