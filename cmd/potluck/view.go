package main

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/config"
	"github.com/dshills/potluck/internal/document"
	"github.com/dshills/potluck/internal/editor"
	"github.com/dshills/potluck/internal/plugin"
	"github.com/dshills/potluck/internal/plugins/timer"
	"github.com/dshills/potluck/internal/render"
)

// ErrNotTerminal is returned by view when stdout is not a terminal.
var ErrNotTerminal = errors.New("view needs an interactive terminal")

func newViewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "view [snapshot]",
		Short: "Browse an annotated recipe in the terminal",
		Long: `View draws the recipe with its annotations highlighted. Move with the
arrow keys; the annotation under the cursor is shown in the status line.
Space starts or pauses a timer, r resets it, q quits. With --config the
file is watched and pipeline and color settings reload live.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return ErrNotTerminal
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			ed, err := e.openEditor(path, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer ed.Close()

			screen, err := tcell.NewScreen()
			if err != nil {
				return err
			}
			if err := screen.Init(); err != nil {
				return err
			}
			defer screen.Fini()

			return e.browse(cmd.Context(), ed, screen)
		},
	}
}

// browse runs the event loop until the user quits or ctx is done.
func (e *env) browse(ctx context.Context, ed *editor.Editor, screen tcell.Screen) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Log lines would corrupt the screen.
	e.log.Disable()
	defer e.log.Enable()

	redraw := func() { _ = screen.PostEvent(tcell.NewEventInterrupt(nil)) }

	unobserve := ed.Document().Observe(func(document.Diff, *document.State, *document.State) {
		redraw()
	})
	defer unobserve()

	var mu sync.Mutex
	opts := render.OptionsFrom(e.cfg.Render)
	if e.configPath != "" {
		go func() {
			err := config.Watch(ctx, e.configPath, func(cfg *config.Config, err error) {
				if err != nil {
					return
				}
				if err := ed.ApplyConfig(cfg); err != nil {
					e.log.Warn("config not applied", "error", err)
					return
				}
				mu.Lock()
				opts = render.OptionsFrom(cfg.Render)
				mu.Unlock()
				redraw()
			}, e.log)
			if err != nil {
				e.log.Warn("config watch stopped", "error", err)
			}
		}()
	}
	go func() {
		<-ctx.Done()
		redraw()
	}()

	r := render.New(screen)
	cursor := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		ed.Select(cursor, cursor)

		mu.Lock()
		o := opts
		mu.Unlock()
		lines := render.Decorate(render.SourceFrom(ed), o)
		r.Draw(lines, render.Status(ed))
		r.ShowCursor(lines, cursor)

		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			n := ed.State().Len()
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return nil
			case tcell.KeyLeft:
				cursor = max(0, cursor-1)
			case tcell.KeyRight:
				cursor = min(n, cursor+1)
			case tcell.KeyHome:
				cursor = 0
			case tcell.KeyEnd:
				cursor = n
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'q':
					return nil
				case ' ':
					e.toggleTimer(ed)
				case 'r':
					e.resetTimer(ed)
				}
			}
		}
	}
}

// activeTimer returns the Duration under the cursor. Steps usually enclose
// their durations, so the first active annotation is not enough.
func activeTimer(ed *editor.Editor) (plugin.View, bool) {
	sel := ed.Selection()
	for _, en := range ed.Entries() {
		if en.Record.Type == annotation.TypeDuration && en.Record.Range.Intersects(sel) {
			return ed.View(en.Record.ID)
		}
	}
	return nil, false
}

func (e *env) toggleTimer(ed *editor.Editor) {
	v, ok := activeTimer(ed)
	if !ok {
		return
	}
	running, _ := plugin.Bool(v, timer.FieldIsRunning)
	if err := ed.SetField(v.ID(), timer.FieldIsRunning, !running); err != nil {
		e.log.Warn("timer toggle failed", "id", v.ID(), "error", err)
	}
}

func (e *env) resetTimer(ed *editor.Editor) {
	v, ok := activeTimer(ed)
	if !ok {
		return
	}
	total, ok := plugin.Int(v, timer.FieldTotalSeconds)
	if !ok {
		return
	}
	if err := ed.SetField(v.ID(), timer.FieldIsRunning, false); err != nil {
		e.log.Warn("timer reset failed", "id", v.ID(), "error", err)
		return
	}
	if err := ed.SetField(v.ID(), timer.FieldRemainingSeconds, total); err != nil {
		e.log.Warn("timer reset failed", "id", v.ID(), "error", err)
	}
}
