package services

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs only the last of a burst of calls. A new Trigger stops the
// pending timer and cancels the context of a call already running, so a
// stale result can be detected with ctx.Err().
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Trigger(parent context.Context, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
}

// Stop drops the pending call and cancels a running one.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
