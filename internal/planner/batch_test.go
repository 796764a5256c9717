package planner

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkmend/linkmend/internal/vault"
)

func memStore(t *testing.T, files map[string]string) (*vault.FS, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	for p, text := range files {
		require.NoError(t, afero.WriteFile(mem, "/"+p, []byte(text), 0o644))
	}
	v, err := vault.NewFS(mem)
	require.NoError(t, err)
	return v, mem
}

// Three dead references where the second target's path already exists:
// two notes are created, one fails, and the batch keeps going.
func TestCreateAllContinuesAfterFailure(t *testing.T) {
	store, mem := memStore(t, map[string]string{"Cat.md": "existing"})
	c := &Creator{Planner: &Planner{}, Store: store}

	items := []Item{
		{Reference: "dogs", Target: "Dog"},
		{Reference: "cats", Target: "Cat"},
		{Reference: "birds", Target: "Bird"},
	}

	var seen []int
	s := c.CreateAll(context.Background(), items, FolderPolicy{}, func(o Outcome) {
		assert.Equal(t, 3, o.Total)
		assert.True(t, c.Busy(), "busy while the batch runs")
		seen = append(seen, o.Index)
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
	require.Len(t, s.Created, 2)
	require.Len(t, s.Failed, 1)
	assert.Equal(t, "Dog.md", s.Created[0].Document.Path)
	assert.Equal(t, "Bird.md", s.Created[1].Document.Path)
	assert.Equal(t, "cats", s.Failed[0].Item.Reference)
	assert.ErrorIs(t, s.Failed[0].Err, vault.ErrAlreadyExists)
	assert.False(t, c.Busy())

	data, err := afero.ReadFile(mem, "/Cat.md")
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
	data, err = afero.ReadFile(mem, "/Bird.md")
	require.NoError(t, err)
	assert.Equal(t, "# Bird\n", string(data))
}

func TestCreateAllSequentialGeneration(t *testing.T) {
	store, _ := memStore(t, nil)
	var inFlight, maxInFlight atomic.Int32
	gen := &trackingGenerator{inFlight: &inFlight, max: &maxInFlight}
	c := &Creator{Planner: &Planner{Generator: gen, Now: fixedNow}, Store: store}

	items := []Item{{Target: "A"}, {Target: "B"}, {Target: "C"}, {Target: "D"}}
	s := c.CreateAll(context.Background(), items, FolderPolicy{Folder: "drafts"}, nil)

	assert.Len(t, s.Created, 4)
	assert.Empty(t, s.Failed)
	assert.Equal(t, int32(1), maxInFlight.Load())
	for _, o := range s.Created {
		assert.True(t, o.Draft.Generated)
		assert.False(t, o.Recovered)
	}
}

func TestCreateAllRecoveredGeneration(t *testing.T) {
	store, _ := memStore(t, nil)
	gen := &fakeGenerator{err: assert.AnError}
	c := &Creator{Planner: &Planner{Generator: gen, Now: fixedNow}, Store: store}

	s := c.CreateAll(context.Background(), []Item{{Target: "Dog"}}, FolderPolicy{}, nil)
	require.Len(t, s.Created, 1)
	assert.True(t, s.Created[0].Recovered)
}

func TestCreateAllCanceled(t *testing.T) {
	store, _ := memStore(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Creator{Planner: &Planner{}, Store: store}

	items := []Item{{Target: "A"}, {Target: "B"}, {Target: "C"}}
	s := c.CreateAll(ctx, items, FolderPolicy{}, func(o Outcome) {
		if o.Index == 1 {
			cancel()
		}
	})

	require.Len(t, s.Created, 1)
	require.Len(t, s.Failed, 2)
	for _, o := range s.Failed {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestCreateAllEmptyTarget(t *testing.T) {
	store, _ := memStore(t, nil)
	c := &Creator{Planner: &Planner{}, Store: store}
	s := c.CreateAll(context.Background(), []Item{{Reference: "#Top", Target: "#Top"}}, FolderPolicy{}, nil)
	require.Len(t, s.Failed, 1)
	assert.ErrorIs(t, s.Failed[0].Err, ErrEmptyTarget)
}

type trackingGenerator struct {
	inFlight *atomic.Int32
	max      *atomic.Int32
}

func (g *trackingGenerator) Name() string { return "tracking" }

func (g *trackingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			break
		}
	}
	return "body", nil
}

type blockingGenerator struct {
	release chan struct{}
}

func (g *blockingGenerator) Name() string { return "blocking" }

func (g *blockingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	select {
	case <-g.release:
		return "body", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestStartMarksBusy(t *testing.T) {
	store, _ := memStore(t, nil)
	gen := &blockingGenerator{release: make(chan struct{})}
	c := &Creator{Planner: &Planner{Generator: gen, Now: fixedNow}, Store: store}

	done, ok := c.Start(context.Background(), []Item{{Target: "Dog"}}, FolderPolicy{}, nil)
	require.True(t, ok)
	assert.True(t, c.Busy())

	_, ok = c.Start(context.Background(), []Item{{Target: "Cat"}}, FolderPolicy{}, nil)
	assert.False(t, ok, "second batch must not start while the first runs")

	s := c.CreateAll(context.Background(), []Item{{Target: "Bird"}}, FolderPolicy{}, nil)
	require.Len(t, s.Failed, 1)
	assert.ErrorIs(t, s.Failed[0].Err, ErrBusy)

	close(gen.release)
	summary := <-done
	require.Len(t, summary.Created, 1)
	assert.Equal(t, "Dog.md", summary.Created[0].Document.Path)
	assert.False(t, c.Busy())
}
