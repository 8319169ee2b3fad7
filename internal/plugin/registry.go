package plugin

import (
	"fmt"
	"maps"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
)

// Conflict records one plugin overriding another's view or effect.
type Conflict struct {
	Type     string
	Slot     string
	Previous string
	Winner   string
}

// String returns a human-readable description.
func (c Conflict) String() string {
	return fmt.Sprintf("%s %s: %s overrides %s", c.Type, c.Slot, c.Winner, c.Previous)
}

// Registry is the merged extension map of an ordered plugin list.
// A Registry is immutable once built.
type Registry struct {
	plugins    []string
	extensions map[string]Extension
	conflicts  []Conflict
}

// NewRegistry merges the extensions of plugins in list order. View and
// effect are replaced wholesale by the last plugin defining them; computed
// and default fields are merged key by key. Every view or effect override
// is recorded as a Conflict and logged.
func NewRegistry(plugins []Plugin, log *logging.Logger) *Registry {
	log = logging.OrDefault(log).WithComponent("plugin")

	r := &Registry{extensions: make(map[string]Extension)}
	viewOwner := map[string]string{}
	effectOwner := map[string]string{}

	for _, p := range plugins {
		r.plugins = append(r.plugins, p.Name)

		for _, typ := range sortedKeys(p.Extensions) {
			ext := p.Extensions[typ]
			merged := r.extensions[typ]

			if len(ext.Computed) > 0 {
				if merged.Computed == nil {
					merged.Computed = make(map[string]Func)
				} else {
					merged.Computed = maps.Clone(merged.Computed)
				}
				maps.Copy(merged.Computed, ext.Computed)
			}
			if len(ext.Defaults) > 0 {
				if merged.Defaults == nil {
					merged.Defaults = make(map[string]Func)
				} else {
					merged.Defaults = maps.Clone(merged.Defaults)
				}
				maps.Copy(merged.Defaults, ext.Defaults)
			}
			if ext.View != nil {
				if prev, ok := viewOwner[typ]; ok {
					r.conflict(log, Conflict{Type: typ, Slot: "view", Previous: prev, Winner: p.Name})
				}
				merged.View = ext.View
				viewOwner[typ] = p.Name
			}
			if ext.Effect != nil {
				if prev, ok := effectOwner[typ]; ok {
					r.conflict(log, Conflict{Type: typ, Slot: "effect", Previous: prev, Winner: p.Name})
				}
				merged.Effect = ext.Effect
				effectOwner[typ] = p.Name
			}

			r.extensions[typ] = merged
		}
	}
	return r
}

func (r *Registry) conflict(log *logging.Logger, c Conflict) {
	r.conflicts = append(r.conflicts, c)
	log.Warn("extension overridden", "type", c.Type, "slot", c.Slot, "previous", c.Previous, "winner", c.Winner)
}

// Extension returns the merged extension for typ. The zero Extension is
// returned for types no plugin extends.
func (r *Registry) Extension(typ string) Extension {
	return r.extensions[typ]
}

// Types returns the extended annotation types, sorted.
func (r *Registry) Types() []string {
	return sortedKeys(r.extensions)
}

// Plugins returns the plugin names in load order.
func (r *Registry) Plugins() []string {
	return append([]string(nil), r.plugins...)
}

// Conflicts returns every recorded override in merge order.
func (r *Registry) Conflicts() []Conflict {
	return append([]Conflict(nil), r.conflicts...)
}

// View builds the computed view of a against buf.
func (r *Registry) View(a annotation.Annotation, buf annotation.Buffer) View {
	return NewView(a, a.Span.Text(buf), r.Extension(a.Type))
}

// Present runs the view function of a's type. all holds views of every
// annotation in the document.
func (r *Registry) Present(v View, all []View) (Presentation, bool) {
	fn := r.Extension(v.Type()).View
	if fn == nil {
		return Presentation{}, false
	}
	return fn(v, all)
}
