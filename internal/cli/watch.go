package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/linkmend/linkmend/internal/config"
	"github.com/linkmend/linkmend/internal/planner"
	"github.com/linkmend/linkmend/internal/resolve"
	"github.com/linkmend/linkmend/internal/vault"
)

// debounceDelay coalesces bursts of file events into one pass.
const debounceDelay = 250 * time.Millisecond

var (
	watchInterval time.Duration
	watchCreate   bool
)

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Re-check at least this often")
	watchCmd.Flags().BoolVar(&watchCreate, "create", false, "Create missing notes as dead links appear")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <note>",
	Short: "Re-check a note whenever the vault changes",
	Long: `Watch a note and report its dead links again whenever a file in the vault
changes and at a fixed interval. With --create, missing notes are created
in the background; passes that would run while creation is in progress
are skipped. A note that could not be created is not retried until the
watched note or another file in the vault changes. Object-storage vaults
are checked on the interval only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchInterval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore()
		if err != nil {
			return err
		}
		note, err := notePath(args[0])
		if err != nil {
			return err
		}

		w := &noteWatcher{
			store:    store,
			note:     note,
			interval: watchInterval,
			out:      &syncWriter{w: cmd.OutOrStdout()},
		}
		if watchCreate {
			if w.creator, err = newCreator(ctx, store, false); err != nil {
				return err
			}
		}

		var events <-chan fsnotify.Event
		var errs <-chan error
		if settings.VaultBackend != config.BackendS3 {
			fw, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("starting file watcher: %w", err)
			}
			defer fw.Close()
			if err := watchTree(fw, vaultRoot()); err != nil {
				return err
			}
			w.fw = fw
			w.root = vaultRoot()
			events, errs = fw.Events, fw.Errors
		}

		fmt.Fprintf(w.out, "Watching %s (Ctrl-C to stop)\n", note)
		return w.run(ctx, events, errs)
	},
}

type noteWatcher struct {
	store    vault.Store
	note     string
	interval time.Duration
	out      io.Writer
	creator  *planner.Creator
	fw       *fsnotify.Watcher
	root     string

	last string // fingerprint of the last printed report

	failed     map[string]bool // target names whose creation failed
	failedText string          // note text the failures were recorded against
	created    map[string]bool // vault paths written by the last batch
	touched    []string        // event paths since the last pass
}

func (w *noteWatcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	var batch <-chan planner.Summary
	start := func() {
		if b := w.cycle(ctx); b != nil {
			batch = b
		}
	}
	start()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if batch != nil {
				<-batch
			}
			return nil
		case <-ticker.C:
			w.settle()
			start()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !w.relevant(ev) {
				continue
			}
			w.touched = append(w.touched, ev.Name)
			debounce = time.After(debounceDelay)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("file watcher error", "error", err)
		case <-debounce:
			debounce = nil
			w.settle()
			start()
		case s := <-batch:
			batch = nil
			fmt.Fprintf(w.out, "Created %d note(s), %d failed.\n", len(s.Created), len(s.Failed))
			w.record(s)
		}
	}
}

// cycle runs one reconciliation pass and prints the report when it
// changed. With creation enabled it starts a batch for the dead links and
// returns its summary channel.
func (w *noteWatcher) cycle(ctx context.Context) <-chan planner.Summary {
	if w.creator != nil && w.creator.Busy() {
		logger.Debug("skipping pass, note creation in progress", "note", w.note)
		return nil
	}
	doc, err := w.store.Get(ctx, w.note)
	if err == nil {
		var text string
		if text, err = w.store.Read(ctx, doc); err == nil {
			return w.report(ctx, doc, text)
		}
	}
	if key := "error:" + err.Error(); key != w.last {
		w.last = key
		fmt.Fprintf(w.out, "⚠ %s: %v\n", w.note, err)
	}
	return nil
}

func (w *noteWatcher) report(ctx context.Context, doc vault.Document, text string) <-chan planner.Summary {
	report := reconcileText(ctx, w.store, text)
	res := newScanResult(doc.Path, report)
	if key := fmt.Sprint(res.References, res.Dead, res.Normalizations); key != w.last {
		w.last = key
		printReport(w.out, res)
	}
	if w.creator == nil {
		return nil
	}
	if text != w.failedText {
		w.failed = nil
	}
	items := w.pending(deadItems(report))
	if len(items) == 0 {
		return nil
	}
	done, ok := w.creator.Start(ctx, items, folderPolicy(doc.Path, ""), progressPrinter(w.out))
	if !ok {
		return nil
	}
	w.failedText = text
	return done
}

// pending drops items whose creation already failed.
func (w *noteWatcher) pending(items []planner.Item) []planner.Item {
	if len(w.failed) == 0 {
		return items
	}
	kept := items[:0]
	for _, it := range items {
		if !w.failed[resolve.Name(it.Target)] {
			kept = append(kept, it)
		}
	}
	return kept
}

// record remembers the outcome of a finished batch. Failed targets are
// skipped by later passes until the vault changes.
func (w *noteWatcher) record(s planner.Summary) {
	w.created = make(map[string]bool, len(s.Created))
	for _, o := range s.Created {
		w.created[o.Document.Path] = true
	}
	if len(s.Failed) == 0 {
		return
	}
	if w.failed == nil {
		w.failed = make(map[string]bool, len(s.Failed))
	}
	for _, o := range s.Failed {
		w.failed[resolve.Name(o.Item.Target)] = true
	}
}

// settle forgets failed targets once a file other than the notes the last
// batch created has changed. Events seen while a batch runs are kept until
// it finishes.
func (w *noteWatcher) settle() {
	if len(w.touched) == 0 || (w.creator != nil && w.creator.Busy()) {
		return
	}
	for _, name := range w.touched {
		if !w.ownWrite(name) {
			w.failed = nil
			break
		}
	}
	w.touched = nil
}

// ownWrite reports whether the event path is a note the last batch created.
func (w *noteWatcher) ownWrite(name string) bool {
	if len(w.created) == 0 || w.root == "" {
		return false
	}
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return false
	}
	return w.created[filepath.ToSlash(rel)]
}

// relevant reports whether an event can change the note's report: the
// note itself or any Markdown file appearing, vanishing or changing.
// New directories are added to the watch.
func (w *noteWatcher) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) && w.fw != nil {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := watchTree(w.fw, ev.Name); err != nil {
				logger.Warn("watching new directory", "dir", ev.Name, "error", err)
			}
			return false
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	return vault.IsNote(ev.Name)
}

// watchTree adds dir and every non-hidden directory below it.
func watchTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// syncWriter serializes writes from the watch loop and a running batch.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
