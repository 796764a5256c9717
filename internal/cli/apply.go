package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linkmend/linkmend/internal/textdiff"
	"github.com/linkmend/linkmend/internal/wikilink"
)

var (
	applyDiff   bool
	applyDryRun bool
)

func init() {
	applyCmd.Flags().BoolVar(&applyDiff, "diff", false, "Print a unified diff of the changes")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Do not write the note")
	rootCmd.AddCommand(applyCmd)
}

var applyCmd = &cobra.Command{
	Use:   "apply <note>",
	Short: "Rewrite links in a note to their suggested spellings",
	Long: `Rewrite every [[link]] in a note whose target has a different canonical
spelling, e.g. [[dogs]] becomes [[Dog]]. Aliases are kept as written.

Examples:
  linkmend apply journal/Today --diff --dry-run
  linkmend apply journal/Today`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		doc, text, err := loadNote(ctx, store, args[0])
		if err != nil {
			return err
		}
		report := reconcileText(ctx, store, text)

		w := cmd.OutOrStdout()
		updated, n := wikilink.Rewrite(text, report.NormalizationMap())
		if n == 0 {
			fmt.Fprintf(w, "Nothing to rewrite in %s.\n", doc.Path)
			return nil
		}
		if applyDiff {
			fmt.Fprint(w, textdiff.Unified(doc.Path, text, updated, textdiff.DefaultContext))
		}
		if applyDryRun {
			fmt.Fprintf(w, "Would rewrite %d link(s) in %s.\n", n, doc.Path)
			return nil
		}
		if err := store.Write(ctx, doc, updated); err != nil {
			return fmt.Errorf("writing %s: %w", doc.Path, err)
		}
		fmt.Fprintf(w, "✓ Rewrote %d link(s) in %s.\n", n, doc.Path)
		return nil
	},
}
