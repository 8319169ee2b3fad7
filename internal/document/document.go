package document

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/crdt"
	"github.com/dshills/potluck/internal/logging"
)

// ErrChangePanicked is returned when a change function panics.
var ErrChangePanicked = errors.New("change function panicked")

// Observer receives every committed, non-empty change.
// before and after must be treated as read-only.
type Observer func(diff Diff, before, after *State)

// Option configures a Document.
type Option func(*Document)

// WithActor sets the replica actor used to author text ops.
func WithActor(actor string) Option {
	return func(d *Document) {
		d.actor = actor
	}
}

// WithContent sets the initial text.
func WithContent(content string) Option {
	return func(d *Document) {
		d.content = content
	}
}

// WithLogger sets the logger used for observer failures.
func WithLogger(l *logging.Logger) Option {
	return func(d *Document) {
		d.log = l
	}
}

type notification struct {
	diff          Diff
	before, after *State
}

type observerEntry struct {
	id int
	fn Observer
}

// Document is a text buffer with its annotation and format lists.
type Document struct {
	mu    sync.Mutex
	state *State

	observers []observerEntry
	nextObsID int
	queue     []notification
	draining  bool

	actor   string
	content string
	log     *logging.Logger
}

// New creates a document.
func New(opts ...Option) *Document {
	d := &Document{}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logging.OrDefault(d.log).WithComponent("document")

	text := crdt.NewFromString(d.content, crdt.WithActor(d.actor))
	d.actor = text.Actor()
	d.content = ""
	d.state = &State{text: text, store: annotation.NewStore()}
	return d
}

// Actor returns the replica actor ID.
func (d *Document) Actor() string {
	return d.actor
}

// State returns the current snapshot.
func (d *Document) State() *State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Content returns the current text.
func (d *Document) Content() string {
	return d.State().Content()
}

// Ops returns every text op integrated so far, for replication.
func (d *Document) Ops() []crdt.Op {
	return d.State().text.Ops()
}

// Change runs fn against a private copy of the document and commits the
// copy if fn returns nil. The returned diff is empty when nothing changed.
func (d *Document) Change(fn func(tx *Tx) error) (Diff, error) {
	d.mu.Lock()
	before := d.state
	tx := newTx(before)

	if err := runChange(fn, tx); err != nil {
		d.mu.Unlock()
		return Diff{}, err
	}

	after := tx.state()
	diff := computeDiff(before, after)
	if diff.IsEmpty() {
		d.mu.Unlock()
		return diff, nil
	}

	d.state = after
	d.queue = append(d.queue, notification{diff: diff, before: before, after: after})
	d.mu.Unlock()

	d.drain()
	return diff, nil
}

// Merge integrates text ops authored by another replica.
func (d *Document) Merge(ops []crdt.Op) (Diff, error) {
	return d.Change(func(tx *Tx) error {
		return tx.ApplyOps(ops)
	})
}

// Fork returns an independent document holding a copy of the current state
// whose text is authored as actor.
func (d *Document) Fork(actor string) *Document {
	s := d.State()
	f := &Document{
		actor: actor,
		log:   d.log,
		state: &State{
			text:    s.text.Fork(actor),
			store:   s.store.Clone(),
			formats: s.Formats(),
		},
	}
	return f
}

// Observe registers fn for every subsequent change.
// The returned function removes the registration.
func (d *Document) Observe(fn Observer) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextObsID++
	id := d.nextObsID
	d.observers = append(d.observers, observerEntry{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func runChange(fn func(tx *Tx) error, tx *Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrChangePanicked, r)
		}
	}()
	return fn(tx)
}

// drain delivers queued notifications. Only one goroutine drains at a time;
// changes committed meanwhile (including from observers) are picked up by
// the active drainer in commit order.
func (d *Document) drain() {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true

	for len(d.queue) > 0 {
		n := d.queue[0]
		d.queue = d.queue[1:]
		observers := append([]observerEntry(nil), d.observers...)
		d.mu.Unlock()

		for _, o := range observers {
			d.notify(o.fn, n)
		}

		d.mu.Lock()
	}

	d.draining = false
	d.mu.Unlock()
}

func (d *Document) notify(fn Observer, n notification) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("observer panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(n.diff, n.before, n.after)
}
