// Package reconcile runs scanning, normalization, and resolution over one
// document and reports which references are dead and how each would be
// spelled canonically.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/linkmend/linkmend/internal/normalize"
	"github.com/linkmend/linkmend/internal/resolve"
	"github.com/linkmend/linkmend/internal/wikilink"
)

// Resolver answers existence questions for canonical targets.
// *resolve.Resolver satisfies it.
type Resolver interface {
	Exists(ctx context.Context, target string) (bool, error)
	ExistsExact(ctx context.Context, target string) (bool, error)
}

// Engine reconciles documents. The zero value is ready to use.
type Engine struct {
	Logger *slog.Logger
}

// Reconcile is Engine{}.Reconcile.
func Reconcile(ctx context.Context, text string, rules normalize.Rules, resolver Resolver) *Report {
	return (&Engine{}).Reconcile(ctx, text, rules, resolver)
}

// Reconcile scans text, normalizes every distinct reference, and resolves
// the canonical targets. A second, exact-path-only pass then drops any dead
// reference whose written or canonical target names an existing document;
// that pass can only shrink the dead set.
//
// Reconcile does not fail. Store errors mark the affected reference dead
// and are listed in Report.LookupErrors.
func (e *Engine) Reconcile(ctx context.Context, text string, rules normalize.Rules, resolver Resolver) *Report {
	logger := e.logger()
	report := newReport()

	tokens := wikilink.Scan(text)
	if len(tokens) == 0 {
		return report
	}

	type candidate struct {
		raw       string
		written   string // target as written, alias stripped
		canonical string // normalized target, alias stripped
	}
	seen := make(map[string]bool, len(tokens))
	var candidates []candidate
	for _, raw := range tokens {
		if seen[raw] {
			continue
		}
		seen[raw] = true
		target, alias := wikilink.SplitAlias(raw)
		canonical := normalize.Target(target, rules)
		if canonical+alias != raw {
			report.addNormalization(raw, canonical+alias)
		}
		candidates = append(candidates, candidate{raw: raw, written: target, canonical: canonical})
	}
	report.references = len(candidates)

	for _, c := range candidates {
		// [[#Heading]] points into the current document.
		if resolve.Name(c.written) == "" {
			continue
		}
		ok, err := resolver.Exists(ctx, c.canonical)
		if err != nil {
			logger.Warn("lookup failed", "reference", c.raw, "error", err)
			report.lookupErrs = append(report.lookupErrs, LookupError{Reference: c.raw, Err: err})
		}
		if !ok {
			report.addDead(c.raw)
		}
	}

	byRaw := make(map[string]candidate, len(candidates))
	for _, c := range candidates {
		byRaw[c.raw] = c
	}
	before := len(report.dead)
	report.settle(func(ref string) bool {
		c := byRaw[ref]
		for _, target := range []string{c.written, c.canonical} {
			if ok, err := resolver.ExistsExact(ctx, target); err == nil && ok {
				logger.Debug("settled reference", "reference", ref, "path", resolve.DocumentPath(target))
				return false
			}
		}
		return true
	})

	logger.Debug("reconciled document",
		"references", report.references,
		"dead", len(report.dead),
		"settled", before-len(report.dead),
		"normalizations", len(report.norms))
	return report
}

func (e *Engine) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
