package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gyaneshwarpardhi/slcreator/internal/event"
	"github.com/gyaneshwarpardhi/slcreator/internal/metrics"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("workspace closed")

// Options tunes a Workspace. Zero values pick defaults.
type Options struct {
	CacheSize  int // open links kept in memory
	QueueDepth int // change events buffered for subscribers
	Logger     *slog.Logger
}

// Change describes what an Edit callback did, for the published event.
type Change struct {
	Op    string
	Level int
	Angle int
	Nodes []int
}

type entry struct {
	link  *sociallink.SocialLink
	dirty bool
}

// Workspace owns the social links being edited. Every operation runs under
// one mutex, so a link is only ever touched by one caller at a time. Links
// are loaded on first use and kept in an LRU; a link with unsaved edits is
// saved before it is evicted.
type Workspace struct {
	mu     sync.Mutex
	st     store.LinkStore
	size   int
	cache  *lru.Cache[string, *entry]
	logger *slog.Logger
	closed bool

	events *workerPool[event.Event]
	subMu  sync.RWMutex
	subs   []func(event.Event)
}

// New creates a Workspace over st. ctx bounds the event delivery goroutine.
func New(ctx context.Context, st store.LinkStore, opts Options) (*Workspace, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 32
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &Workspace{
		st:     st,
		size:   opts.CacheSize,
		logger: logger.With("component", "workspace"),
	}
	cache, err := lru.NewWithEvict[string, *entry](opts.CacheSize, w.onEvict)
	if err != nil {
		return nil, fmt.Errorf("workspace cache: %w", err)
	}
	w.cache = cache
	w.events = newWorkerPool[event.Event](ctx, 1, opts.QueueDepth, w.deliver)
	return w, nil
}

// OnChange registers a callback invoked, off the caller's goroutine, for
// every change event.
func (w *Workspace) OnChange(fn func(event.Event)) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	w.subs = append(w.subs, fn)
}

// View runs fn with the link for arcana. fn must not keep the link or
// mutate it.
func (w *Workspace) View(ctx context.Context, arcana string, fn func(*sociallink.SocialLink) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.get(ctx, arcana)
	if err != nil {
		return err
	}
	return fn(e.link)
}

// Edit runs fn with the link for arcana. When fn succeeds the link is
// marked dirty and an edited event is published; when it fails the link is
// left as fn left it, so fn must validate before mutating.
func (w *Workspace) Edit(ctx context.Context, arcana string, fn func(*sociallink.SocialLink) (Change, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.get(ctx, arcana)
	if err != nil {
		return err
	}
	ch, err := fn(e.link)
	if err != nil {
		return err
	}
	e.dirty = true

	ev := event.New(event.KindEdited, arcana)
	ev.Op, ev.Level, ev.Angle, ev.Nodes = ch.Op, ch.Level, ch.Angle, ch.Nodes
	w.publish(ev)
	return nil
}

// Save writes the link for arcana if it has unsaved edits.
func (w *Workspace) Save(ctx context.Context, arcana string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	e, ok := w.cache.Peek(arcana)
	if !ok || !e.dirty {
		return nil
	}
	return w.saveEntry(ctx, arcana, e)
}

// SaveAll writes every link with unsaved edits and reports every failure.
func (w *Workspace) SaveAll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.saveAll(ctx)
}

// Dirty reports whether arcana has unsaved edits.
func (w *Workspace) Dirty(arcana string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.cache.Peek(arcana)
	return ok && e.dirty
}

// Cached lists the open links, least recently used first.
func (w *Workspace) Cached() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cache.Keys()
}

// Invalidate drops the cached copy of arcana after the stored record
// changed underneath us. A link with unsaved edits is kept and false is
// returned; the next save will overwrite the external change.
func (w *Workspace) Invalidate(arcana string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.cache.Peek(arcana)
	if !ok {
		return false
	}
	if e.dirty {
		w.logger.Warn("stored link changed while it has unsaved edits, keeping in-memory copy", "arcana", arcana)
		return false
	}
	w.cache.Remove(arcana)
	metrics.CachedLinks.Set(float64(w.cache.Len()))
	w.publish(event.New(event.KindInvalidated, arcana))
	return true
}

// Close saves every dirty link, empties the cache and waits for pending
// change events to be delivered.
func (w *Workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	err := w.saveAll(ctx)
	w.closed = true
	w.cache.Purge()
	metrics.CachedLinks.Set(0)
	w.mu.Unlock()

	w.events.Drain()
	return err
}

func (w *Workspace) get(ctx context.Context, arcana string) (*entry, error) {
	if w.closed {
		return nil, ErrClosed
	}
	if e, ok := w.cache.Get(arcana); ok {
		metrics.LinkLoads.WithLabelValues("hit").Inc()
		return e, nil
	}
	l, err := sociallink.Load(ctx, w.st, arcana)
	if err != nil {
		metrics.LinkLoads.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.LinkLoads.WithLabelValues("miss").Inc()

	if w.cache.Len() >= w.size {
		if key, old, ok := w.cache.GetOldest(); ok {
			if old.dirty {
				if err := w.saveEntry(ctx, key, old); err != nil {
					return nil, fmt.Errorf("make room for %s: %w", arcana, err)
				}
			}
			w.cache.Remove(key)
			w.publish(event.New(event.KindEvicted, key))
		}
	}
	e := &entry{link: l}
	w.cache.Add(arcana, e)
	metrics.CachedLinks.Set(float64(w.cache.Len()))
	w.logger.Debug("link opened", "arcana", arcana, "cutscenes", len(l.Cutscenes))
	return e, nil
}

func (w *Workspace) saveAll(ctx context.Context) error {
	var errs []error
	for _, key := range w.cache.Keys() {
		e, ok := w.cache.Peek(key)
		if !ok || !e.dirty {
			continue
		}
		if err := w.saveEntry(ctx, key, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Workspace) saveEntry(ctx context.Context, arcana string, e *entry) error {
	start := time.Now()
	err := e.link.Save(ctx, w.st)
	metrics.LinkSaveDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.LinkSaves.WithLabelValues("error").Inc()
		w.logger.Error("save link failed", "arcana", arcana, "err", err)
		return fmt.Errorf("save %s: %w", arcana, err)
	}
	metrics.LinkSaves.WithLabelValues("ok").Inc()
	e.dirty = false
	w.logger.Info("link saved", "arcana", arcana)
	w.publish(event.New(event.KindSaved, arcana))
	return nil
}

// onEvict writes an entry that leaves the cache with unsaved edits. get and
// Close save before removing, so this only fires for evictions done by Add.
func (w *Workspace) onEvict(arcana string, e *entry) {
	if !e.dirty {
		return
	}
	if err := e.link.Save(context.Background(), w.st); err != nil {
		metrics.LinkSaves.WithLabelValues("error").Inc()
		w.logger.Error("unsaved edits lost on eviction", "arcana", arcana, "err", err)
		return
	}
	metrics.LinkSaves.WithLabelValues("ok").Inc()
	e.dirty = false
}

func (w *Workspace) publish(ev event.Event) {
	if w.closed {
		return
	}
	if !w.events.Submit(ev) {
		w.logger.Warn("change event dropped, queue full", "arcana", ev.Arcana, "kind", ev.Kind)
	}
}

func (w *Workspace) deliver(_ context.Context, ev event.Event) {
	w.subMu.RLock()
	subs := make([]func(event.Event), len(w.subs))
	copy(subs, w.subs)
	w.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
