package vault

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemVault(t *testing.T, files map[string]string) (*FS, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	for p, text := range files {
		require.NoError(t, afero.WriteFile(mem, "/"+p, []byte(text), 0o644))
	}
	v, err := NewFS(mem)
	require.NoError(t, err)
	return v, mem
}

func TestFSGet(t *testing.T) {
	v, _ := newMemVault(t, map[string]string{"notes/Dog.md": "# Dog\n"})
	ctx := context.Background()

	doc, err := v.Get(ctx, "notes/Dog.md")
	require.NoError(t, err)
	assert.Equal(t, "notes/Dog.md", doc.Path)
	assert.Equal(t, int64(len("# Dog\n")), doc.Size)

	_, err = v.Get(ctx, "notes/Cat.md")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = v.Get(ctx, "notes")
	assert.ErrorIs(t, err, ErrNotFound, "directories are not documents")

	_, err = v.Get(ctx, "../escape.md")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestFSList(t *testing.T) {
	v, _ := newMemVault(t, map[string]string{
		"b.md":               "",
		"a/Dog.md":           "",
		"a/img.png":          "",
		".obsidian/app.md":   "",
		"deep/er/Reading.md": "",
	})

	docs, err := v.List(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{"a/Dog.md", "a/img.png", "b.md", "deep/er/Reading.md"}, paths)
}

func TestFSCreate(t *testing.T) {
	v, mem := newMemVault(t, map[string]string{"Dog.md": "old"})
	ctx := context.Background()

	doc, err := v.Create(ctx, "new/folder/Cat.md", "# Cat\n")
	require.NoError(t, err)
	assert.Equal(t, "new/folder/Cat.md", doc.Path)

	data, err := afero.ReadFile(mem, "/new/folder/Cat.md")
	require.NoError(t, err)
	assert.Equal(t, "# Cat\n", string(data))

	_, err = v.Create(ctx, "Dog.md", "replacement")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	data, _ = afero.ReadFile(mem, "/Dog.md")
	assert.Equal(t, "old", string(data), "create must never overwrite")

	_, err = v.Create(ctx, "bad:name.md", "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestFSReadWrite(t *testing.T) {
	v, _ := newMemVault(t, map[string]string{"Dog.md": "See [[cats]]"})
	ctx := context.Background()

	doc, err := v.Get(ctx, "Dog.md")
	require.NoError(t, err)

	text, err := v.Read(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "See [[cats]]", text)

	require.NoError(t, v.Write(ctx, doc, "See [[Cat]] now"))
	text, err = v.Read(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "See [[Cat]] now", text)

	err = v.Write(ctx, Document{Path: "Missing.md"}, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSReadSeesExternalChanges(t *testing.T) {
	v, mem := newMemVault(t, map[string]string{"Dog.md": "one"})
	ctx := context.Background()

	doc, err := v.Get(ctx, "Dog.md")
	require.NoError(t, err)
	_, err = v.Read(ctx, doc)
	require.NoError(t, err)

	// A change of size invalidates the cached text.
	require.NoError(t, afero.WriteFile(mem, "/Dog.md", []byte("three"), 0o644))
	text, err := v.Read(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "three", text)
}

func TestFSWithoutCache(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/Dog.md", []byte("x"), 0o644))
	v, err := NewFS(mem, WithCacheEntries(0))
	require.NoError(t, err)

	text, err := v.Read(context.Background(), Document{Path: "Dog.md"})
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	v, err := OpenDir(dir)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = v.Create(ctx, "Dog.md", "# Dog\n")
	require.NoError(t, err)

	docs, err := v.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Dog.md", docs[0].Path)

	_, err = OpenDir(dir + "/missing")
	assert.Error(t, err)
}
