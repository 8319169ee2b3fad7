// Package editor wires a document to its operation translator, plugin
// pipeline, extension registry and effect engine, and exposes the
// operations a host performs on an annotated recipe.
package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/config"
	"github.com/dshills/potluck/internal/crdt"
	"github.com/dshills/potluck/internal/document"
	"github.com/dshills/potluck/internal/effect"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
	plua "github.com/dshills/potluck/internal/plugin/lua"
	"github.com/dshills/potluck/internal/plugins"
	"github.com/dshills/potluck/internal/translate"
)

// Option configures an Editor.
type Option func(*options)

type options struct {
	content string
	log     *logging.Logger
	plugins []plugin.Plugin
	hook    func(effect.Event)
}

// WithContent sets the initial text.
func WithContent(content string) Option {
	return func(o *options) {
		o.content = content
	}
}

// WithLogger sets the base logger handed to every component.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithPlugins replaces the configured built-in and Lua plugins.
func WithPlugins(list ...plugin.Plugin) Option {
	return func(o *options) {
		o.plugins = list
	}
}

// WithEventHook observes every effect lifecycle event.
func WithEventHook(fn func(effect.Event)) Option {
	return func(o *options) {
		o.hook = fn
	}
}

// Editor is one open document with its plugins attached.
type Editor struct {
	log     *logging.Logger
	base    *logging.Logger
	doc     *document.Document
	tr      *translate.Translator
	reg     *plugin.Registry
	eng     *effect.Engine
	plugins []plugin.Plugin
	scripts []*plua.Script

	mu    sync.Mutex
	pipe  *plugin.Pipeline
	rerun bool
	sel   annotation.Range

	closeOnce sync.Once
}

// New builds an editor from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*Editor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	base := logging.OrDefault(o.log)

	list := o.plugins
	var scripts []*plua.Script
	if list == nil {
		builtin, err := plugins.Builtin(cfg.Plugins.Enabled, cfg.Timer.TickInterval, base)
		if err != nil {
			return nil, &InitError{Component: "plugins", Err: err}
		}
		list = builtin

		if cfg.Plugins.LuaDir != "" {
			scripts, err = plua.LoadDir(cfg.Plugins.LuaDir,
				plua.WithTimeout(cfg.Plugins.LuaTimeout),
				plua.WithLogger(base),
			)
			if err != nil {
				base.Warn("some lua plugins failed to load", "dir", cfg.Plugins.LuaDir, "error", err)
			}
			list = append(list, plua.Plugins(scripts)...)
		}
	}

	doc := document.New(
		document.WithContent(o.content),
		document.WithActor(cfg.Editor.Actor),
		document.WithLogger(base),
	)
	reg := plugin.NewRegistry(list, base)

	engOpts := []effect.Option{effect.WithLogger(base)}
	if o.hook != nil {
		engOpts = append(engOpts, effect.WithEventHook(o.hook))
	}
	eng := effect.New(doc, reg, engOpts...)
	eng.Attach()

	e := &Editor{
		log:     base.WithComponent("editor"),
		base:    base,
		doc:     doc,
		tr:      translate.New(doc, translate.WithDelimiter(cfg.DelimiterRune()), translate.WithLogger(base)),
		reg:     reg,
		eng:     eng,
		plugins: list,
		scripts: scripts,
		pipe:    newPipeline(list, cfg.Pipeline.FailFast, base),
		rerun:   cfg.Pipeline.RerunOnEdit,
	}
	return e, nil
}

func newPipeline(list []plugin.Plugin, failFast bool, log *logging.Logger) *plugin.Pipeline {
	return plugin.NewPipeline(list, plugin.WithFailFast(failFast), plugin.WithPipelineLogger(log))
}

// ApplyConfig applies the settings that can change while a document is
// open: pipeline behavior and log level. Delimiter and plugin changes take
// effect on the next editor.
func (e *Editor) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.base.SetLevel(logging.ParseLogLevel(cfg.Logging.Level))

	e.mu.Lock()
	e.pipe = newPipeline(e.plugins, cfg.Pipeline.FailFast, e.base)
	e.rerun = cfg.Pipeline.RerunOnEdit
	e.mu.Unlock()

	if cfg.DelimiterRune() != e.tr.Delimiter() {
		e.log.Info("delimiter change ignored until restart", "delimiter", cfg.Editor.Delimiter)
	}
	return nil
}

// Close unmounts every effect and releases Lua states.
func (e *Editor) Close() {
	e.closeOnce.Do(func() {
		e.eng.Close()
		plua.CloseAll(e.scripts)
	})
}

// Document returns the underlying document.
func (e *Editor) Document() *document.Document { return e.doc }

// Registry returns the merged extension registry.
func (e *Editor) Registry() *plugin.Registry { return e.reg }

// Engine returns the effect engine.
func (e *Editor) Engine() *effect.Engine { return e.eng }

// Plugins returns the loaded plugins in load order.
func (e *Editor) Plugins() []plugin.Plugin {
	return append([]plugin.Plugin(nil), e.plugins...)
}

// State returns the current document snapshot.
func (e *Editor) State() *document.State { return e.doc.State() }

// Content returns the current text.
func (e *Editor) Content() string { return e.doc.Content() }

// Delimiter returns the paragraph delimiter.
func (e *Editor) Delimiter() rune { return e.tr.Delimiter() }

// Paragraphs returns the current tree view.
func (e *Editor) Paragraphs() []translate.Paragraph { return e.tr.Paragraphs() }

func (e *Editor) pipeline() (*plugin.Pipeline, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipe, e.rerun
}

// Apply applies one editing-surface operation. A rejected operation leaves
// the document unchanged and is returned for the caller to ignore or report.
func (e *Editor) Apply(op translate.Op) error {
	if err := e.tr.Apply(op); err != nil {
		return err
	}
	return e.afterEdit()
}

// ApplyJSON decodes a JSON operation or operation array and applies it.
func (e *Editor) ApplyJSON(data []byte) error {
	ops, err := translate.DecodeAll(data)
	if err != nil {
		return err
	}
	applyErr := e.tr.ApplyAll(ops)
	return errors.Join(applyErr, e.afterEdit())
}

// Merge integrates text ops authored by another replica.
func (e *Editor) Merge(ops []crdt.Op) error {
	if _, err := e.doc.Merge(ops); err != nil {
		return err
	}
	return e.afterEdit()
}

func (e *Editor) afterEdit() error {
	if _, rerun := e.pipeline(); !rerun {
		return nil
	}
	return e.Retransform()
}

// Select sets the selection, clamped to the text.
func (e *Editor) Select(anchor, focus int) annotation.Range {
	n := e.doc.State().Len()
	r := annotation.NewRange(clamp(anchor, n), clamp(focus, n))

	e.mu.Lock()
	e.sel = r
	e.mu.Unlock()
	return r
}

// Selection returns the current selection.
func (e *Editor) Selection() annotation.Range {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

// Active returns the first annotation intersecting the selection.
func (e *Editor) Active() (annotation.Annotation, bool) {
	return e.doc.State().FindActive(e.Selection())
}

func clamp(v, n int) int {
	return max(0, min(v, n))
}

func checkRange(tx *document.Tx, r annotation.Range) error {
	if r.IsEmpty() {
		return ErrInvalidSelection
	}
	if r.Start < 0 || r.End > tx.Len() {
		return fmt.Errorf("%w: %s outside text of length %d", ErrInvalidSelection, r, tx.Len())
	}
	return nil
}

// AddAnnotation creates an annotation of typ over r. The pipeline runs over
// the existing annotations plus the new one; only the new annotation's
// derived data is kept. An empty selection creates nothing and returns
// ErrInvalidSelection.
func (e *Editor) AddAnnotation(typ string, r annotation.Range, data annotation.Data) (annotation.Annotation, error) {
	pipe, _ := e.pipeline()
	r = annotation.NewRange(r.Start, r.End)

	var created annotation.Annotation
	_, err := e.doc.Change(func(tx *document.Tx) error {
		if err := checkRange(tx, r); err != nil {
			return err
		}
		draft := annotation.New(typ, tx.Span(r.Start, r.End), data)
		all := append(tx.Store().All(), draft)

		out, err := pipe.Apply(all, tx.Buffer())
		if err != nil {
			return err
		}
		created = out[len(out)-1]
		return tx.Store().Insert(created)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidSelection) {
			e.log.Debug("annotation ignored", "type", typ, "range", r.String())
		} else {
			e.log.Error("annotation rejected", "type", typ, "error", err)
		}
		return annotation.Annotation{}, err
	}
	return created.Clone(), nil
}

// AnnotateSelection is AddAnnotation over the current selection.
func (e *Editor) AnnotateSelection(typ string, data annotation.Data) (annotation.Annotation, error) {
	return e.AddAnnotation(typ, e.Selection(), data)
}

// Delete removes the annotation with id. Removing an absent id is a no-op.
func (e *Editor) Delete(id string) error {
	if _, ok := e.doc.State().Annotation(id); !ok {
		e.log.Debug("delete of unknown annotation ignored", "id", id)
		return nil
	}
	_, err := e.doc.Change(func(tx *document.Tx) error {
		tx.Store().Remove(id)
		return nil
	})
	return err
}

// SetField assigns one data field of the annotation with id.
func (e *Editor) SetField(id, field string, value any) error {
	_, err := e.doc.Change(func(tx *document.Tx) error {
		return tx.Store().SetField(id, field, value)
	})
	return err
}

// ToggleFormat toggles f over r: the format is removed when it is already
// active over the whole range and applied otherwise.
func (e *Editor) ToggleFormat(f annotation.Format, r annotation.Range) error {
	_, err := e.doc.Change(func(tx *document.Tx) error {
		if err := checkRange(tx, r); err != nil {
			return err
		}
		tx.AddFormat(annotation.ToggleFormat(tx.Buffer(), tx.Formats(), f, r))
		return nil
	})
	if errors.Is(err, ErrInvalidSelection) {
		e.log.Debug("format ignored", "format", string(f), "range", r.String())
	}
	return err
}

// Retransform re-runs the pipeline over every annotation and stores the
// derived data in one change.
func (e *Editor) Retransform() error {
	pipe, _ := e.pipeline()
	_, err := e.doc.Change(func(tx *document.Tx) error {
		all := tx.Store().All()
		out, err := pipe.Apply(all, tx.Buffer())
		if err != nil {
			return err
		}
		for i, a := range out {
			if a.Data.Equal(all[i].Data) {
				continue
			}
			if err := tx.Store().SetData(a.ID, a.Data); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// Views returns the computed view of every annotation, in document order.
func (e *Editor) Views() []plugin.View {
	st := e.doc.State()
	all := st.Annotations()
	out := make([]plugin.View, len(all))
	for i, a := range all {
		out[i] = e.reg.View(a, st.Buffer())
	}
	return out
}

// View returns the computed view of the annotation with id.
func (e *Editor) View(id string) (plugin.View, bool) {
	st := e.doc.State()
	a, ok := st.Annotation(id)
	if !ok {
		return nil, false
	}
	return e.reg.View(a, st.Buffer()), true
}
