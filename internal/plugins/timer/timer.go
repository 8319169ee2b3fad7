// Package timer turns Duration annotations into countdown timers.
//
// A Duration's transform records totalSeconds. While the annotation's
// isRunning field is true its effect decrements remainingSeconds once per
// tick and clears isRunning when the countdown reaches zero.
package timer

import (
	"fmt"
	"math"
	"time"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
)

// Name is the plugin name.
const Name = "timer"

// Duration fields.
const (
	FieldTotalSeconds     = "totalSeconds"
	FieldRemainingSeconds = "remainingSeconds"
	FieldIsRunning        = "isRunning"
	FieldIsInProgress     = "isInProgress"
	FieldIsFinished       = "isFinished"
	FieldIsPaused         = "isPaused"
	FieldMinutesDigits    = "minutesDigits"
	FieldSecondsDigits    = "secondsDigits"
)

// DefaultInterval is the countdown tick interval.
const DefaultInterval = time.Second

// Option configures the timer plugin.
type Option func(*config)

type config struct {
	clock    Clock
	interval time.Duration
	log      *logging.Logger
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithInterval sets the tick interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.interval = d
		}
	}
}

// WithLogger sets the logger used by running timers.
func WithLogger(l *logging.Logger) Option {
	return func(cfg *config) {
		cfg.log = l
	}
}

// Plugin returns the timer plugin.
func Plugin(opts ...Option) plugin.Plugin {
	cfg := &config{clock: wallClock{}, interval: DefaultInterval}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.log = logging.OrDefault(cfg.log).WithComponent("timer")

	return plugin.Plugin{
		Name:      Name,
		Types:     []string{annotation.TypeDuration},
		Transform: transform,
		Extensions: map[string]plugin.Extension{
			annotation.TypeDuration: {
				Computed: map[string]plugin.Func{
					FieldIsInProgress: func(v plugin.View) any {
						_, ok := v.Get(FieldRemainingSeconds)
						return ok
					},
					FieldIsFinished: func(v plugin.View) any {
						n, ok := plugin.Int(v, FieldRemainingSeconds)
						return ok && n == 0
					},
					FieldIsPaused: func(v plugin.View) any {
						n, _ := plugin.Int(v, FieldRemainingSeconds)
						running, _ := plugin.Bool(v, FieldIsRunning)
						return n > 0 && !running
					},
					FieldMinutesDigits: func(v plugin.View) any {
						n, _ := plugin.Int(v, FieldRemainingSeconds)
						return n / 60
					},
					FieldSecondsDigits: func(v plugin.View) any {
						n, _ := plugin.Int(v, FieldRemainingSeconds)
						m, _ := plugin.Int(v, FieldMinutesDigits)
						return n - m*60
					},
				},
				Defaults: map[string]plugin.Func{
					FieldIsRunning: func(plugin.View) any { return false },
					FieldRemainingSeconds: func(v plugin.View) any {
						n, _ := plugin.Int(v, FieldTotalSeconds)
						return n
					},
				},
				View: view,
				Effect: func(h plugin.MutableView) plugin.Effect {
					return &countdown{h: h, clock: cfg.clock, interval: cfg.interval, log: cfg.log}
				},
			},
		},
	}
}

func transform(annotations []annotation.Annotation, buf annotation.Buffer) error {
	for i := range annotations {
		a := &annotations[i]
		if a.Type != annotation.TypeDuration {
			continue
		}
		if a.Data == nil {
			a.Data = annotation.Data{}
		}
		secs, ok := ParseDuration(a.Span.Text(buf))
		if !ok {
			delete(a.Data, FieldTotalSeconds)
			continue
		}
		a.Data[FieldTotalSeconds] = int(math.Round(secs))
	}
	return nil
}

func view(v plugin.View, _ []plugin.View) (plugin.Presentation, bool) {
	if _, ok := v.Get(FieldTotalSeconds); !ok {
		return plugin.Presentation{}, false
	}
	m, _ := plugin.Int(v, FieldMinutesDigits)
	s, _ := plugin.Int(v, FieldSecondsDigits)
	return plugin.Presentation{Text: fmt.Sprintf("(%02d:%02d ▶)", m, s)}, true
}
