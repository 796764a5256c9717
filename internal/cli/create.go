package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkmend/linkmend/internal/planner"
	"github.com/linkmend/linkmend/internal/vault"
	"github.com/linkmend/linkmend/internal/wikilink"
)

var (
	createAll        bool
	createFolder     string
	createNoGenerate bool
)

func init() {
	createCmd.Flags().BoolVar(&createAll, "all", false, "Create a note for every dead link")
	createCmd.Flags().StringVar(&createFolder, "folder", "", "Folder for new notes (overrides the folder settings)")
	createCmd.Flags().BoolVar(&createNoGenerate, "no-generate", false, "Create heading-only notes even when generation is enabled")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <note> [link...]",
	Short: "Create the missing notes behind dead links",
	Long: `Create notes for dead links found in a note. Notes are created one at a
time under their canonical name; a link whose note cannot be created is
reported and the rest are still processed. Existing notes are never
overwritten.

Examples:
  linkmend create journal/Today --all
  linkmend create journal/Today dogs "Reading list"
  linkmend create Today --all --folder inbox --no-generate`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !createAll && len(args) == 1 {
			return fmt.Errorf("name the links to create or pass --all")
		}
		if createAll && len(args) > 1 {
			return fmt.Errorf("--all cannot be combined with link names")
		}

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
		items := deadItems(report)
		if !createAll {
			if items, err = selectItems(items, args[1:]); err != nil {
				return err
			}
		}

		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintf(w, "No dead links in %s.\n", doc.Path)
			return nil
		}

		creator, err := newCreator(ctx, store, createNoGenerate)
		if err != nil {
			return err
		}
		summary := creator.CreateAll(ctx, items, folderPolicy(doc.Path, createFolder), progressPrinter(w))

		fmt.Fprintf(w, "Created %d of %d notes.\n", len(summary.Created), len(items))
		if n := len(summary.Failed); n > 0 {
			return fmt.Errorf("%d note(s) could not be created", n)
		}
		return nil
	},
}

func newCreator(ctx context.Context, store vault.Store, noGenerate bool) (*planner.Creator, error) {
	p := &planner.Planner{Logger: logger}
	if !noGenerate {
		gen, err := newGenerator(ctx)
		if err != nil {
			return nil, err
		}
		p.Generator = gen
	}
	return &planner.Creator{Planner: p, Store: store}, nil
}

// selectItems keeps the dead links named on the command line. A name may
// be given as written in the note or in its suggested spelling, with or
// without brackets.
func selectItems(items []planner.Item, names []string) ([]planner.Item, error) {
	var out []planner.Item
	for _, name := range names {
		name = strings.TrimSuffix(strings.TrimPrefix(name, wikilink.Open), wikilink.Close)
		found := false
		for _, it := range items {
			if it.Reference == name || it.Target == name {
				out = append(out, it)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s is not a dead link in this note", wikilink.Format(name))
		}
	}
	return out, nil
}

func progressPrinter(w io.Writer) planner.ProgressFunc {
	return func(o planner.Outcome) {
		prefix := fmt.Sprintf("[%d/%d]", o.Index, o.Total)
		switch {
		case !o.OK():
			fmt.Fprintf(w, "%s ✗ %s: %v\n", prefix, wikilink.Format(o.Item.Reference), o.Err)
		case o.Recovered:
			fmt.Fprintf(w, "%s ✓ %s (generation failed, prompt kept: %v)\n", prefix, o.Document.Path, o.Draft.GenerationErr)
		default:
			fmt.Fprintf(w, "%s ✓ %s\n", prefix, o.Document.Path)
		}
	}
}
