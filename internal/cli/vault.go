package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/linkmend/linkmend/internal/config"
	"github.com/linkmend/linkmend/internal/generate"
	"github.com/linkmend/linkmend/internal/planner"
	"github.com/linkmend/linkmend/internal/reconcile"
	"github.com/linkmend/linkmend/internal/resolve"
	"github.com/linkmend/linkmend/internal/vault"
)

// vaultRoot is the directory of a filesystem vault.
func vaultRoot() string {
	if vaultDir != "" {
		return vaultDir
	}
	if settings.Vault != "" {
		return settings.Vault
	}
	return "."
}

// openStore opens the configured vault backend.
func openStore() (vault.Store, error) {
	if err := requireSettings(); err != nil {
		return nil, err
	}
	if settings.VaultBackend == config.BackendS3 {
		prefix := settings.Vault
		if vaultDir != "" {
			prefix = vaultDir
		}
		if prefix == "." {
			prefix = ""
		}
		s3, err := vault.NewS3(vault.S3Config{
			Endpoint:  settings.S3Endpoint,
			AccessKey: settings.S3AccessKey,
			SecretKey: settings.S3SecretKey,
			Bucket:    settings.S3Bucket,
			Prefix:    prefix,
			UseSSL:    settings.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	fsv, err := vault.OpenDir(vaultRoot())
	if err != nil {
		return nil, err
	}
	return fsv, nil
}

// notePath turns a command-line note argument into a vault path. The
// suffix is optional; a path to an existing file under the vault root
// is accepted too.
func notePath(arg string) (string, error) {
	p := filepath.ToSlash(strings.TrimSpace(arg))
	if settings.VaultBackend != config.BackendS3 && filepath.IsAbs(arg) {
		root, err := filepath.Abs(vaultRoot())
		if err != nil {
			return "", fmt.Errorf("resolving vault root: %w", err)
		}
		rel, err := filepath.Rel(root, arg)
		if err != nil {
			return "", fmt.Errorf("%s is outside the vault %s", arg, root)
		}
		p = filepath.ToSlash(rel)
	}
	p = strings.TrimPrefix(p, "./")
	if !vault.IsNote(p) {
		p += vault.Suffix
	}
	return vault.CleanPath(p)
}

// loadNote reads the note named by arg.
func loadNote(ctx context.Context, store vault.Store, arg string) (vault.Document, string, error) {
	p, err := notePath(arg)
	if err != nil {
		return vault.Document{}, "", err
	}
	doc, err := store.Get(ctx, p)
	if err != nil {
		return vault.Document{}, "", fmt.Errorf("opening note %s: %w", p, err)
	}
	text, err := store.Read(ctx, doc)
	if err != nil {
		return vault.Document{}, "", err
	}
	return doc, text, nil
}

// reconcileText runs one reconciliation pass against the store.
func reconcileText(ctx context.Context, store vault.Store, text string) *reconcile.Report {
	engine := &reconcile.Engine{Logger: logger}
	return engine.Reconcile(ctx, text, settings.Rules(), resolve.New(store, logger))
}

// newGenerator returns the configured generation service, or nil when
// generation is disabled.
func newGenerator(ctx context.Context) (generate.Generator, error) {
	if !settings.UseExternalGeneration {
		return nil, nil
	}
	opts := settings.GenerateOptions()
	var g generate.Generator
	switch settings.Provider {
	case config.ProviderGemini:
		gc, err := generate.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), opts)
		if err != nil {
			return nil, err
		}
		g = gc
	default:
		g = generate.NewHTTPClient(settings.ServiceURL, opts)
	}
	return generate.WithRetry(g, settings.RetryPolicy()), nil
}

// folderPolicy builds the creation policy for notes linked from contextPath.
// A non-empty folder overrides the settings.
func folderPolicy(contextPath, folder string) planner.FolderPolicy {
	if folder != "" {
		return planner.FolderPolicy{Folder: folder, ContextPath: contextPath}
	}
	return planner.FolderPolicy{
		UseHostDefault: settings.UseHostDefaultFolder,
		Folder:         settings.CustomFolder,
		ContextPath:    contextPath,
	}
}

// deadItems lists the dead references of a report as creation items.
// References that normalize to the same note yield one item.
func deadItems(report *reconcile.Report) []planner.Item {
	dead := report.Dead()
	items := make([]planner.Item, 0, len(dead))
	seen := make(map[string]bool, len(dead))
	for _, ref := range dead {
		target := report.Suggested(ref)
		name := resolve.Name(target)
		if seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, planner.Item{Reference: ref, Target: target})
	}
	return items
}
