package timer

import (
	"sync"
	"time"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
)

// countdown is the effect of one Duration annotation. At most one ticker
// goroutine runs per countdown.
type countdown struct {
	h        plugin.MutableView
	clock    Clock
	interval time.Duration
	log      *logging.Logger

	mu   sync.Mutex
	stop chan struct{}
}

func (c *countdown) OnMount() {
	if c.running() {
		c.start()
	}
}

func (c *countdown) OnChange(plugin.View) {
	if c.running() {
		c.start()
	} else {
		c.halt()
	}
}

func (c *countdown) OnUnmount() {
	c.halt()
}

func (c *countdown) running() bool {
	running, _ := plugin.Bool(c.h, FieldIsRunning)
	return running
}

func (c *countdown) start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	go c.loop(c.clock.NewTicker(c.interval), c.stop)
}

// halt never waits for the loop: it may be called from the loop itself
// when a tick's write is observed.
func (c *countdown) halt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// release clears stop if it still belongs to the running loop.
func (c *countdown) release(stop <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil && (<-chan struct{})(c.stop) == stop {
		close(c.stop)
		c.stop = nil
	}
}

func (c *countdown) loop(t Ticker, stop <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			select {
			case <-stop:
				return
			default:
			}
			if !c.tick() {
				c.release(stop)
				return
			}
		}
	}
}

// tick decrements remainingSeconds and reports whether the countdown
// should keep running. The running flag is read in the same change as the
// write, so a pause committed after the tick fired wins.
func (c *countdown) tick() bool {
	keep := false
	err := c.h.Update(func(v plugin.View) annotation.Data {
		if running, _ := plugin.Bool(v, FieldIsRunning); !running {
			return nil
		}
		remaining, ok := plugin.Int(v, FieldRemainingSeconds)
		if !ok || remaining <= 0 {
			return annotation.Data{FieldIsRunning: false}
		}
		remaining--
		if remaining == 0 {
			return annotation.Data{FieldRemainingSeconds: 0, FieldIsRunning: false}
		}
		keep = true
		return annotation.Data{FieldRemainingSeconds: remaining}
	})
	if err != nil {
		c.log.Debug("timer write failed", "id", c.h.ID(), "error", err)
		return false
	}
	return keep
}
