// Package resolve decides whether a canonical reference target names a
// document that already exists in a vault.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/linkmend/linkmend/internal/vault"
	"github.com/linkmend/linkmend/internal/wikilink"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Resolver checks targets against a store: an exact path lookup first, then
// a case-insensitive match on document base names.
//
// The base-name index is built from one store listing, taken on the first
// fallback lookup and reused afterwards. Use a fresh Resolver for each
// reconciliation pass.
type Resolver struct {
	store  vault.Store
	logger *slog.Logger

	indexed bool
	names   map[string]string // folded base name -> document path
}

// New returns a Resolver over store. A nil logger discards output.
func New(store vault.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{store: store, logger: logger}
}

// DocumentPath is the vault path a target names: the target without alias
// or heading, plus the note suffix.
func DocumentPath(target string) string {
	return Name(target) + vault.Suffix
}

// Name strips the alias and any heading or block subpath from a target.
func Name(target string) string {
	target, _ = wikilink.SplitAlias(target)
	name, _ := wikilink.SplitSubpath(target)
	return name
}

// Fold maps a name to its comparison key: NFC-normalized and case folded.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// ExistsExact reports whether a document lives at exactly DocumentPath(target).
func (r *Resolver) ExistsExact(ctx context.Context, target string) (bool, error) {
	if Name(target) == "" {
		return false, nil
	}
	_, err := r.store.Get(ctx, DocumentPath(target))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, vault.ErrNotFound), errors.Is(err, vault.ErrInvalidPath):
		return false, nil
	default:
		return false, err
	}
}

// Exists reports whether target resolves to a document, tolerating
// differences in letter case between the target and the file name.
func (r *Resolver) Exists(ctx context.Context, target string) (bool, error) {
	ok, err := r.ExistsExact(ctx, target)
	if err != nil || ok {
		return ok, err
	}
	name := Name(target)
	if name == "" {
		return false, nil
	}
	if err := r.buildIndex(ctx); err != nil {
		return false, err
	}
	if p, hit := r.names[Fold(path.Base(name))]; hit {
		r.logger.Debug("resolved by case-insensitive name", "target", target, "path", p)
		return true, nil
	}
	return false, nil
}

func (r *Resolver) buildIndex(ctx context.Context) error {
	if r.indexed {
		return nil
	}
	docs, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	names := make(map[string]string, len(docs))
	for _, d := range docs {
		if !vault.IsNote(d.Path) {
			continue
		}
		key := Fold(d.Name())
		if _, dup := names[key]; !dup {
			names[key] = d.Path
		}
	}
	r.names = names
	r.indexed = true
	r.logger.Debug("indexed vault names", "documents", len(docs), "notes", len(names))
	return nil
}
