// Package plugin implements the annotation plugin contract: transforms that
// derive annotation data, and per-type extensions that add computed fields,
// defaults, presentations and effects.
//
// Plugins are plain values loaded into an ordered list by the host. The
// list order is significant: later transforms see the fields written by
// earlier ones, and later extensions override earlier ones.
package plugin

import (
	"maps"
	"slices"

	"github.com/dshills/potluck/internal/annotation"
)

// Func computes a field from a view.
type Func func(v View) any

// Transform derives data for the annotations a plugin recognizes. It may
// overwrite Data on any element of annotations and must be deterministic
// for a given buffer content and input list.
type Transform func(annotations []annotation.Annotation, buf annotation.Buffer) error

// Presentation is what a view function contributes to the display of one
// annotation.
type Presentation struct {
	Text string
}

// ViewFunc presents one annotation given every annotation in the document.
// It returns false when it has nothing to show.
type ViewFunc func(v View, all []View) (Presentation, bool)

// Effect is the lifecycle of one mounted annotation.
type Effect interface {
	OnMount()
	OnChange(prev View)
	OnUnmount()
}

// EffectFactory creates the effect for a freshly inserted annotation.
type EffectFactory func(h MutableView) Effect

// EffectFuncs adapts plain functions to Effect. Nil hooks are skipped.
type EffectFuncs struct {
	Mount   func()
	Change  func(prev View)
	Unmount func()
}

// OnMount calls Mount.
func (e EffectFuncs) OnMount() {
	if e.Mount != nil {
		e.Mount()
	}
}

// OnChange calls Change.
func (e EffectFuncs) OnChange(prev View) {
	if e.Change != nil {
		e.Change(prev)
	}
}

// OnUnmount calls Unmount.
func (e EffectFuncs) OnUnmount() {
	if e.Unmount != nil {
		e.Unmount()
	}
}

// Extension is what a plugin adds for one annotation type.
type Extension struct {
	Computed map[string]Func
	Defaults map[string]Func
	View     ViewFunc
	Effect   EffectFactory
}

// Plugin is one entry in the plugin list.
type Plugin struct {
	Name string
	// Types lists the annotation types Transform recognizes.
	Types      []string
	Transform  Transform
	Extensions map[string]Extension
}

// Handles reports whether typ is one of the plugin's declared types.
// A plugin that declares no types handles every type.
func (p Plugin) Handles(typ string) bool {
	return len(p.Types) == 0 || slices.Contains(p.Types, typ)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
