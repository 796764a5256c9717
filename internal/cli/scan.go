package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/linkmend/linkmend/internal/reconcile"
	"github.com/linkmend/linkmend/internal/wikilink"
)

var scanFormat string

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan <note>",
	Short: "Report dead links and suggested spellings in a note",
	Long: `Scan a note for [[wikilinks]], normalize each target with the configured
rules, and report the links whose notes do not exist yet.

Examples:
  linkmend scan journal/Today
  linkmend scan Today.md --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch scanFormat {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("--format must be text, json or yaml, got %q", scanFormat)
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
		out := newScanResult(doc.Path, report)

		w := cmd.OutOrStdout()
		switch scanFormat {
		case "json":
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling report: %w", err)
			}
			fmt.Fprintln(w, string(data))
		case "yaml":
			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("marshaling report: %w", err)
			}
			fmt.Fprint(w, string(data))
		default:
			printReport(w, out)
		}
		return nil
	},
}

type deadLink struct {
	Reference string `json:"reference" yaml:"reference"`
	Suggested string `json:"suggested" yaml:"suggested"`
}

type scanResult struct {
	Note           string                    `json:"note" yaml:"note"`
	References     int                       `json:"references" yaml:"references"`
	Dead           []deadLink                `json:"dead" yaml:"dead"`
	Normalizations []reconcile.Normalization `json:"normalizations" yaml:"normalizations"`
	LookupErrors   []string                  `json:"lookupErrors,omitempty" yaml:"lookupErrors,omitempty"`
}

func newScanResult(note string, report *reconcile.Report) scanResult {
	out := scanResult{
		Note:           note,
		References:     report.References(),
		Dead:           []deadLink{},
		Normalizations: report.Normalizations(),
	}
	if out.Normalizations == nil {
		out.Normalizations = []reconcile.Normalization{}
	}
	for _, ref := range report.Dead() {
		out.Dead = append(out.Dead, deadLink{Reference: ref, Suggested: report.Suggested(ref)})
	}
	for _, le := range report.LookupErrors() {
		out.LookupErrors = append(out.LookupErrors, le.Error())
	}
	return out
}

func printReport(w io.Writer, r scanResult) {
	if r.References == 0 {
		fmt.Fprintf(w, "No links found in %s.\n", r.Note)
		return
	}
	if len(r.Dead) == 0 {
		fmt.Fprintf(w, "✓ All %d links in %s resolve.\n", r.References, r.Note)
	} else {
		fmt.Fprintf(w, "%d of %d links in %s are dead:\n", len(r.Dead), r.References, r.Note)
		for _, d := range r.Dead {
			if d.Suggested != d.Reference {
				fmt.Fprintf(w, "  ✗ %s → %s\n", wikilink.Format(d.Reference), wikilink.Format(d.Suggested))
			} else {
				fmt.Fprintf(w, "  ✗ %s\n", wikilink.Format(d.Reference))
			}
		}
	}
	if len(r.Normalizations) > 0 {
		fmt.Fprintln(w, "Suggested spellings:")
		for _, n := range r.Normalizations {
			fmt.Fprintf(w, "  %s → %s\n", wikilink.Format(n.Original), wikilink.Format(n.Canonical))
		}
	}
	for _, e := range r.LookupErrors {
		fmt.Fprintf(w, "  ⚠ lookup failed: %s\n", e)
	}
}
