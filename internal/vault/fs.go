package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// DefaultCacheEntries bounds the read cache of a filesystem vault.
const DefaultCacheEntries = 512

type cachedText struct {
	doc  Document
	text string
}

// FS is a vault rooted at the top of an afero filesystem. Reads are served
// from an LRU cache while the file's size and modification time are
// unchanged.
type FS struct {
	fs    afero.Fs
	cache *lru.Cache[string, cachedText]
}

// FSOption configures an FS vault.
type FSOption func(*fsOptions)

type fsOptions struct {
	cacheEntries int
}

// WithCacheEntries sets the read cache size. Zero or less disables caching.
func WithCacheEntries(n int) FSOption {
	return func(o *fsOptions) { o.cacheEntries = n }
}

// NewFS wraps an afero filesystem whose root is the vault root.
func NewFS(fsys afero.Fs, opts ...FSOption) (*FS, error) {
	o := fsOptions{cacheEntries: DefaultCacheEntries}
	for _, opt := range opts {
		opt(&o)
	}
	v := &FS{fs: fsys}
	if o.cacheEntries > 0 {
		cache, err := lru.New[string, cachedText](o.cacheEntries)
		if err != nil {
			return nil, fmt.Errorf("creating read cache: %w", err)
		}
		v.cache = cache
	}
	return v, nil
}

// OpenDir returns a vault over a directory on the local disk.
func OpenDir(dir string, opts ...FSOption) (*FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening vault %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening vault %s: not a directory", dir)
	}
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), dir), opts...)
}

// fsPath maps a vault path onto the afero filesystem.
func fsPath(p string) string {
	return "/" + p
}

func toDocument(p string, info fs.FileInfo) Document {
	return Document{Path: p, ModTime: info.ModTime(), Size: info.Size()}
}

// Get implements Store.
func (v *FS) Get(ctx context.Context, p string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	clean, err := CleanPath(p)
	if err != nil {
		return Document{}, err
	}
	info, err := v.fs.Stat(fsPath(clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%s: %w", clean, ErrNotFound)
		}
		return Document{}, fmt.Errorf("stat %s: %w", clean, err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s: %w", clean, ErrNotFound)
	}
	return toDocument(clean, info), nil
}

// List implements Store. Hidden directories (".obsidian", ".git", ...) are
// skipped. The result is sorted by path.
func (v *FS) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := afero.Walk(v.fs, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
		if info.IsDir() {
			if rel != "" && strings.HasPrefix(path.Base(rel), ".") {
				return fs.SkipDir
			}
			return nil
		}
		docs = append(docs, toDocument(rel, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing vault: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Read implements Store.
func (v *FS) Read(ctx context.Context, doc Document) (string, error) {
	current, err := v.Get(ctx, doc.Path)
	if err != nil {
		return "", err
	}
	if v.cache != nil {
		if c, ok := v.cache.Get(current.Path); ok && sameVersion(c.doc, current) {
			return c.text, nil
		}
	}
	data, err := afero.ReadFile(v.fs, fsPath(current.Path))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", current.Path, err)
	}
	text := string(data)
	v.remember(current, text)
	return text, nil
}

// Write implements Store.
func (v *FS) Write(ctx context.Context, doc Document, text string) error {
	current, err := v.Get(ctx, doc.Path)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(v.fs, fsPath(current.Path), []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", current.Path, err)
	}
	v.refresh(current.Path, text)
	return nil
}

// Create implements Store.
func (v *FS) Create(ctx context.Context, p, text string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	clean, err := CleanPath(p)
	if err != nil {
		return Document{}, err
	}
	target := fsPath(clean)
	if exists, err := afero.Exists(v.fs, target); err != nil {
		return Document{}, fmt.Errorf("checking %s: %w", clean, err)
	} else if exists {
		return Document{}, fmt.Errorf("%s: %w", clean, ErrAlreadyExists)
	}
	if dir := path.Dir(target); dir != "/" {
		if err := v.fs.MkdirAll(dir, 0o755); err != nil {
			return Document{}, fmt.Errorf("creating folder for %s: %w", clean, err)
		}
	}
	f, err := v.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Document{}, fmt.Errorf("%s: %w", clean, ErrAlreadyExists)
		}
		return Document{}, fmt.Errorf("creating %s: %w", clean, err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return Document{}, fmt.Errorf("writing %s: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return Document{}, fmt.Errorf("closing %s: %w", clean, err)
	}
	return v.refresh(clean, text), nil
}

// refresh re-stats a just-written file and caches its text.
func (v *FS) refresh(p, text string) Document {
	doc := Document{Path: p, Size: int64(len(text))}
	if info, err := v.fs.Stat(fsPath(p)); err == nil {
		doc = toDocument(p, info)
	}
	v.remember(doc, text)
	return doc
}

func (v *FS) remember(doc Document, text string) {
	if v.cache == nil {
		return
	}
	v.cache.Add(doc.Path, cachedText{doc: doc, text: text})
}

func sameVersion(a, b Document) bool {
	return a.Size == b.Size && a.ModTime.Equal(b.ModTime)
}
