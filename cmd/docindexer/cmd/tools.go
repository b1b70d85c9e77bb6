package cmd

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/contentaddr"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/spelling"
)

func newCorrectCmd(opts *options) *cobra.Command {
	var dictPath string

	cmd := &cobra.Command{
		Use:   "correct <word>...",
		Short: "Print the spelling correction of each word",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dictPath == "" {
				dictPath = opts.cfg.Dictionaries.Frequency
			}
			if dictPath == "" {
				return fmt.Errorf("no frequency dictionary: pass --frequency or set dictionaries.frequency")
			}
			freq, err := frequency.Load(dictPath)
			if err != nil {
				return err
			}
			c := spelling.NewCorrector(freq, nil)
			for _, w := range args {
				word := lexicon.Fold(w)
				corrected, outcome := c.Resolve(word)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", word, corrected, outcome)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dictPath, "frequency", "", "frequency dictionary (default dictionaries.frequency)")
	return cmd
}

func newExtractCmd(opts *options) *cobra.Command {
	var (
		title       string
		description string
		top         int
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the weighted keywords of a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			ex, err := buildExtractor(opts.cfg)
			if err != nil {
				return err
			}
			res := ex.Extract(keywords.Document{Title: title, Description: description, Body: string(data)})
			records := keywords.Records(args[0], res)
			slices.SortStableFunc(records, func(a, b keywords.KeywordRecord) int {
				return cmp.Compare(b.Occurrences, a.Occurrences)
			})
			if top > 0 && len(records) > top {
				records = records[:top]
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"keywords": records, "stats": res.Stats})
			}
			for _, r := range records {
				fmt.Fprintf(out, "%d\t%s\n", r.Occurrences, r.Word)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVar(&description, "description", "", "document description")
	cmd.Flags().IntVar(&top, "top", 0, "print only the N heaviest keywords")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print keywords and statistics as JSON")
	return cmd
}

func newDigestCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "digest <file>",
		Short: "Print the SHA-256 digest and storage key of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if name == "" {
				name = args[0][strings.LastIndexAny(args[0], `/\`)+1:]
			}
			d := contentaddr.DigestAndKey(data, name)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Hex(), d.StorageKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "filename used in the storage key (default the file's base name)")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random API key for auth.apiKeys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := apikey.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
