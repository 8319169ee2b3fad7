package plugin

import (
	"errors"
	"fmt"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
)

// ErrorField is the data field set on annotations whose transform failed.
const ErrorField = "error"

// TransformError reports a failed plugin transform.
type TransformError struct {
	Plugin string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("plugin %s: transform: %v", e.Plugin, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// errTransformPanicked wraps a panic raised by a transform.
var errTransformPanicked = errors.New("transform panicked")

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithFailFast makes a failing transform abort the whole run instead of
// marking the affected annotations.
func WithFailFast(failFast bool) PipelineOption {
	return func(p *Pipeline) {
		p.failFast = failFast
	}
}

// WithPipelineLogger sets the logger for transform failures.
func WithPipelineLogger(l *logging.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = l
	}
}

// Pipeline runs plugin transforms in list order.
type Pipeline struct {
	plugins  []Plugin
	failFast bool
	log      *logging.Logger
}

// NewPipeline creates a pipeline over plugins.
func NewPipeline(plugins []Plugin, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{plugins: append([]Plugin(nil), plugins...)}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logging.OrDefault(p.log).WithComponent("pipeline")
	return p
}

// Plugins returns the plugin list.
func (p *Pipeline) Plugins() []Plugin {
	return append([]Plugin(nil), p.plugins...)
}

// Apply deep-clones annotations and runs every transform over the clone.
// The input is never modified.
//
// When a transform fails, its writes are discarded. With fail-fast the run
// stops and returns a *TransformError. Otherwise the failure is logged, the
// plugin's annotations get an ErrorField, and later plugins still run.
func (p *Pipeline) Apply(annotations []annotation.Annotation, buf annotation.Buffer) ([]annotation.Annotation, error) {
	working := cloneAll(annotations)

	for _, pl := range p.plugins {
		if pl.Transform == nil {
			continue
		}

		attempt := cloneAll(working)
		if err := runTransform(pl, attempt, buf); err != nil {
			terr := &TransformError{Plugin: pl.Name, Err: err}
			if p.failFast {
				return nil, terr
			}
			p.log.Error("transform failed", "plugin", pl.Name, "error", err)
			markFailed(working, pl, terr)
			continue
		}
		working = attempt
	}
	return working, nil
}

func runTransform(pl Plugin, annotations []annotation.Annotation, buf annotation.Buffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errTransformPanicked, r)
		}
	}()
	return pl.Transform(annotations, buf)
}

func markFailed(annotations []annotation.Annotation, pl Plugin, err error) {
	for i := range annotations {
		if !pl.Handles(annotations[i].Type) {
			continue
		}
		if annotations[i].Data == nil {
			annotations[i].Data = annotation.Data{}
		}
		annotations[i].Data[ErrorField] = err.Error()
	}
}

func cloneAll(annotations []annotation.Annotation) []annotation.Annotation {
	out := make([]annotation.Annotation, len(annotations))
	for i, a := range annotations {
		out[i] = a.Clone()
	}
	return out
}
