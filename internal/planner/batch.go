package planner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/linkmend/linkmend/internal/vault"
)

// ErrBusy is reported for every item of a batch started while another
// batch of the same Creator is running.
var ErrBusy = errors.New("another batch is already running")

// Item is one dead reference queued for creation.
type Item struct {
	Reference string // as written in the document
	Target    string // canonical target to create
}

// Outcome reports what happened to one item.
type Outcome struct {
	Index     int // 1-based position in the batch
	Total     int
	Item      Item
	Draft     Draft
	Document  vault.Document
	Err       error
	Recovered bool // generation failed but the note was still created
}

// OK reports whether the note was created.
func (o Outcome) OK() bool { return o.Err == nil }

// Summary collects the outcomes of a batch.
type Summary struct {
	Created []Outcome
	Failed  []Outcome
}

// ProgressFunc receives each outcome as soon as its item finishes.
type ProgressFunc func(Outcome)

// Creator plans and creates notes strictly one after another, so at most
// one generation request is in flight.
type Creator struct {
	Planner *Planner
	Store   vault.Store

	busy atomic.Bool
}

// Busy reports whether a batch is running. Hosts check it before starting
// a reconciliation that could observe half-created notes.
func (c *Creator) Busy() bool { return c.busy.Load() }

// CreateAll processes items in order. A failed item is reported and the
// batch moves on to the next one. Once ctx is done the remaining items
// fail with the context error.
func (c *Creator) CreateAll(ctx context.Context, items []Item, policy FolderPolicy, progress ProgressFunc) Summary {
	if !c.busy.CompareAndSwap(false, true) {
		return busySummary(items)
	}
	defer c.busy.Store(false)
	return c.run(ctx, items, policy, progress)
}

// Start runs CreateAll in the background and returns a channel that
// delivers the summary. Busy reports true as soon as Start returns. When a
// batch is already running nothing starts and ok is false.
func (c *Creator) Start(ctx context.Context, items []Item, policy FolderPolicy, progress ProgressFunc) (done <-chan Summary, ok bool) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	ch := make(chan Summary, 1)
	go func() {
		s := c.run(ctx, items, policy, progress)
		c.busy.Store(false)
		ch <- s
		close(ch)
	}()
	return ch, true
}

func busySummary(items []Item) Summary {
	var s Summary
	for i, it := range items {
		s.Failed = append(s.Failed, Outcome{Index: i + 1, Total: len(items), Item: it, Err: ErrBusy})
	}
	return s
}

func (c *Creator) run(ctx context.Context, items []Item, policy FolderPolicy, progress ProgressFunc) Summary {
	var s Summary
	for i, it := range items {
		out := c.createOne(ctx, it, policy)
		out.Index, out.Total = i+1, len(items)
		if out.OK() {
			s.Created = append(s.Created, out)
		} else {
			s.Failed = append(s.Failed, out)
		}
		if progress != nil {
			progress(out)
		}
	}
	return s
}

func (c *Creator) createOne(ctx context.Context, it Item, policy FolderPolicy) Outcome {
	out := Outcome{Item: it}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	draft, err := c.Planner.Plan(ctx, it.Target, policy)
	if err != nil {
		out.Err = fmt.Errorf("planning %q: %w", it.Reference, err)
		return out
	}
	out.Draft = draft
	doc, err := Create(ctx, c.Store, draft)
	if err != nil {
		out.Err = fmt.Errorf("creating %s: %w", draft.Path, err)
		return out
	}
	out.Document = doc
	out.Recovered = draft.GenerationErr != nil
	return out
}
