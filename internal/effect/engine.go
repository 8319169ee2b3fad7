// Package effect drives per-annotation effect lifecycles from document
// diffs.
//
// Every annotation id moves through absent -> mounted -> removed. An
// insertion mounts it exactly once, in-place data changes of a mounted id
// are reported to its effect's OnChange with the pre-change view, and a
// removal calls OnUnmount exactly once. Removed ids never receive further
// calls.
package effect

import (
	"runtime/debug"
	"sort"
	"sync"

	"github.com/dshills/potluck/internal/document"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithEventHook registers fn to observe every lifecycle event the engine
// acts on. Intended for diagnostics and tests.
func WithEventHook(fn func(Event)) Option {
	return func(e *Engine) {
		e.hook = fn
	}
}

type mounted struct {
	handle *handle
	effect plugin.Effect
}

// Engine mounts, updates and unmounts annotation effects.
type Engine struct {
	doc      *document.Document
	registry *plugin.Registry
	log      *logging.Logger
	hook     func(Event)

	mu          sync.Mutex
	mounts      map[string]*mounted
	unsubscribe func()
}

// New creates an engine for doc using the effects in registry.
func New(doc *document.Document, registry *plugin.Registry, opts ...Option) *Engine {
	e := &Engine{
		doc:      doc,
		registry: registry,
		mounts:   make(map[string]*mounted),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrDefault(e.log).WithComponent("effect")
	return e
}

// Attach subscribes to the document and mounts every annotation it already
// holds. Attach should be called before other goroutines edit the document.
func (e *Engine) Attach() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.mu.Unlock()
		return
	}
	e.unsubscribe = e.doc.Observe(e.onDiff)
	e.mu.Unlock()

	s := e.doc.State()
	for i, a := range s.Annotations() {
		e.mount(Event{Kind: KindInsert, ID: a.ID, Index: i}, a.Type)
	}
}

// Close unsubscribes and unmounts every mounted annotation.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	ids := make([]string, 0, len(e.mounts))
	for id := range e.mounts {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		e.unmount(Event{Kind: KindRemove, ID: id, Index: -1})
	}
}

// Mounted returns the ids currently mounted, sorted.
func (e *Engine) Mounted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.mounts))
	for id := range e.mounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) onDiff(diff document.Diff, before, after *document.State) {
	for _, ev := range Classify(diff) {
		switch ev.Kind {
		case KindRemove:
			e.unmount(ev)
		case KindInsert:
			a, ok := after.Annotation(ev.ID)
			if !ok {
				continue
			}
			e.mount(ev, a.Type)
		case KindChange:
			e.change(ev, before)
		}
	}
}

// mount builds the effect before publishing it, so concurrent diffs never
// see a half-initialized entry.
func (e *Engine) mount(ev Event, typ string) {
	m := &mounted{handle: &handle{id: ev.ID, typ: typ, doc: e.doc, registry: e.registry}}
	if factory := e.registry.Extension(typ).Effect; factory != nil {
		e.safely(ev, func() {
			m.effect = factory(m.handle)
		})
	}

	e.mu.Lock()
	if _, ok := e.mounts[ev.ID]; ok {
		e.mu.Unlock()
		e.log.Warn("annotation already mounted", "id", ev.ID)
		return
	}
	e.mounts[ev.ID] = m
	e.mu.Unlock()

	e.emit(ev)
	if m.effect != nil {
		e.safely(ev, m.effect.OnMount)
	}
}

func (e *Engine) change(ev Event, before *document.State) {
	e.mu.Lock()
	m, ok := e.mounts[ev.ID]
	e.mu.Unlock()
	if !ok {
		return
	}

	e.emit(ev)
	if m.effect == nil {
		return
	}
	prev, ok := before.Annotation(ev.ID)
	if !ok {
		return
	}
	prevView := e.registry.View(prev, before.Buffer())
	e.safely(ev, func() {
		m.effect.OnChange(prevView)
	})
}

func (e *Engine) unmount(ev Event) {
	e.mu.Lock()
	m, ok := e.mounts[ev.ID]
	delete(e.mounts, ev.ID)
	e.mu.Unlock()
	if !ok {
		return
	}

	e.emit(ev)
	if m.effect != nil {
		e.safely(ev, m.effect.OnUnmount)
	}
}

func (e *Engine) emit(ev Event) {
	if e.hook != nil {
		e.hook(ev)
	}
}

func (e *Engine) safely(ev Event, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("effect panicked", "event", ev.String(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
