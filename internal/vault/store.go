package vault

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Suffix is the file extension of a note.
const Suffix = ".md"

var (
	// ErrNotFound is returned when no document exists at a path.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the path is taken.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrInvalidPath is returned for paths a vault cannot hold.
	ErrInvalidPath = errors.New("invalid document path")
)

// Document identifies one note in a vault.
type Document struct {
	Path    string    // vault-relative, slash separated, e.g. "notes/Dog.md"
	ModTime time.Time // zero when the backend does not report it
	Size    int64
}

// Name returns the final path segment without the note suffix.
func (d Document) Name() string {
	return BaseName(d.Path)
}

// Store is the minimal document collection the engine works against.
type Store interface {
	// Get returns the document at exactly path, or ErrNotFound.
	Get(ctx context.Context, p string) (Document, error)
	// List enumerates every document in the vault.
	List(ctx context.Context) ([]Document, error)
	// Read returns the text of a document.
	Read(ctx context.Context, doc Document) (string, error)
	// Write replaces the text of an existing document.
	Write(ctx context.Context, doc Document, text string) error
	// Create adds a new document. It fails with ErrAlreadyExists rather
	// than overwrite, and with ErrInvalidPath for unusable paths.
	Create(ctx context.Context, p, text string) (Document, error)
}

// IsNote reports whether p carries the note suffix.
func IsNote(p string) bool {
	return strings.HasSuffix(p, Suffix)
}

// BaseName returns the final segment of p with the note suffix stripped.
func BaseName(p string) string {
	return strings.TrimSuffix(path.Base(p), Suffix)
}

// invalidChars cannot appear in a note path on common filesystems or
// would be ambiguous inside a [[reference]].
const invalidChars = "*\"<>:|?\\#^[]"

// CleanPath validates p and returns its canonical vault-relative form.
func CleanPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidPath, p)
	}
	if i := strings.IndexAny(p, invalidChars); i >= 0 {
		return "", fmt.Errorf("%w: %q contains %q", ErrInvalidPath, p, p[i])
	}
	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("%w: %q contains a control character", ErrInvalidPath, p)
		}
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the vault", ErrInvalidPath, p)
		}
	}
	clean := path.Clean(p)
	if clean == "." || path.Base(clean) == Suffix {
		return "", fmt.Errorf("%w: %q has no file name", ErrInvalidPath, p)
	}
	return clean, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
