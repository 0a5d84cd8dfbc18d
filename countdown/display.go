// Package countdown shows the time left until a deadline, refreshed every
// second, and triggers one delayed refresh when the deadline passes.
package countdown

import (
	"time"

	"github.com/fixkme/grouprefresh/clock"
	"github.com/fixkme/grouprefresh/mlog"
)

const (
	TickInterval = time.Second
	// RefreshDelay separates the expired label from the refresh it triggers.
	RefreshDelay = time.Second
)

type State int

const (
	Ticking State = iota
	Expired
)

func (s State) String() string {
	if s == Expired {
		return "expired"
	}
	return "ticking"
}

type Options struct {
	// OnText receives every new text value.
	OnText func(text string)
}

// Display must be driven from the clock's goroutine.
type Display struct {
	clk      clock.Clock
	deadline time.Time
	action   func()
	onText   func(string)
	text     string
	state    State
	started  bool
	stopped  bool
	ticker   clock.Timer // 每秒的tick
}

func New(clk clock.Clock, deadline time.Time, action func(), opt *Options) *Display {
	d := &Display{
		clk:      clk,
		deadline: deadline,
		action:   action,
	}
	if opt != nil {
		d.onText = opt.OnText
	}
	return d
}

func (d *Display) Text() string { return d.text }

func (d *Display) State() State { return d.state }

func (d *Display) Deadline() time.Time { return d.deadline }

// Start ticks once immediately, then every TickInterval.
func (d *Display) Start() {
	if d.started || d.stopped {
		return
	}
	d.started = true
	d.tick()
}

func (d *Display) tick() {
	d.ticker = nil
	if d.stopped || d.state == Expired {
		return
	}
	remaining := d.deadline.Sub(d.clk.Now())
	if remaining <= 0 {
		d.expire()
		return
	}
	d.setText(Format(remaining))
	d.ticker = d.clk.AfterFunc(TickInterval, d.tick)
}

func (d *Display) expire() {
	d.state = Expired
	d.setText(ExpiredLabel)
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
	mlog.Infof("countdown %s expired, refresh in %v", d.deadline.Format(time.RFC3339), RefreshDelay)
	// 刷新的是目标区域而非倒计时自身, 卸载后仍然执行一次
	d.clk.AfterFunc(RefreshDelay, func() {
		if d.action != nil {
			d.action()
		}
	})
}

func (d *Display) setText(text string) {
	if text == d.text {
		return
	}
	d.text = text
	if d.onText != nil {
		d.onText(text)
	}
}

// Stop cancels the recurring tick. A pending expiry refresh still fires.
// Safe to call any number of times.
func (d *Display) Stop() {
	d.stopped = true
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
}
