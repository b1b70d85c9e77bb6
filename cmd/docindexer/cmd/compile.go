package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/dictfile"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/lexicon"
)

func withLock(ctx context.Context, dst string, wait time.Duration, fn func() error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	unlock, err := dictfile.Lock(ctx, dst)
	if err != nil {
		return fmt.Errorf("another compilation holds %s: %w", dst, err)
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("unlocking %s: %w", dst, uerr)
		}
	}()
	return fn()
}

func newCompileLemmasCmd(opts *options) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "compile-lemmas <table> [output]",
		Short: "Compile a pipe-separated lemma table into a binary dictionary",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := opts.cfg.Dictionaries.Lemmas
			if len(args) == 2 {
				dst = args[1]
			}
			if dst == "" {
				return fmt.Errorf("no output path: pass one or set dictionaries.lemmas")
			}
			start := time.Now()
			var stats lexicon.CompileStats
			err := withLock(cmd.Context(), dst, wait, func() error {
				var err error
				stats, err = lexicon.CompileFile(args[0], dst)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d entries from %d rows (%d malformed, %d duplicates) in %s\n",
				dst, stats.Entries, stats.Rows, stats.Malformed, stats.Duplicates, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "lock-timeout", 10*time.Second, "how long to wait for a concurrent compilation")
	return cmd
}

func newCompileFrequenciesCmd(opts *options) *cobra.Command {
	var (
		wait      time.Duration
		stopWords string
	)

	cmd := &cobra.Command{
		Use:   "compile-frequencies <corpus-dir> [output]",
		Short: "Count words over a directory of UTF-8 text files into a frequency dictionary",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := opts.cfg.Dictionaries.Frequency
			if len(args) == 2 {
				dst = args[1]
			}
			if dst == "" {
				return fmt.Errorf("no output path: pass one or set dictionaries.frequency")
			}
			if stopWords == "" {
				stopWords = opts.cfg.Dictionaries.StopWords
			}
			start := time.Now()
			var stats frequency.CompileStats
			err := withLock(cmd.Context(), dst, wait, func() error {
				var err error
				stats, err = frequency.CompileDir(cmd.Context(), args[0], stopWords, dst)
				return err
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wrote %s: %d words, %d tokens from %d files in %s\n",
				dst, stats.Words, stats.Tokens, stats.Files, time.Since(start).Round(time.Millisecond))
			for _, p := range stats.SkippedPaths {
				fmt.Fprintf(out, "skipped %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "lock-timeout", 10*time.Second, "how long to wait for a concurrent compilation")
	cmd.Flags().StringVar(&stopWords, "stopwords", "", "stop-word list (default dictionaries.stopWords)")
	return cmd
}
