// Package deadline runs a refresh action once, no earlier than a target
// instant, waking at most once a minute until the last minute.
package deadline

import (
	"time"

	"github.com/fixkme/grouprefresh/clock"
	"github.com/fixkme/grouprefresh/mlog"
)

const (
	// PollInterval caps how long a single wait may be.
	PollInterval = 60 * time.Second
	// Margin is added to the precise wait to absorb clock drift.
	Margin = time.Second
)

type State int

const (
	Idle State = iota
	WaitingCoarse
	WaitingPrecise
	Fired
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingCoarse:
		return "waiting-coarse"
	case WaitingPrecise:
		return "waiting-precise"
	case Fired:
		return "fired"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Scheduler must be driven from the clock's goroutine: Start, Stop and the
// timer callbacks are never concurrent.
type Scheduler struct {
	clk      clock.Clock
	deadline *time.Time
	action   func()
	timer    clock.Timer
	state    State
}

// New returns an inert scheduler when deadline is nil.
func New(clk clock.Clock, deadline *time.Time, action func()) *Scheduler {
	s := &Scheduler{
		clk:    clk,
		action: action,
	}
	if deadline != nil {
		d := *deadline
		s.deadline = &d
	}
	return s
}

func (s *Scheduler) State() State { return s.state }

func (s *Scheduler) Deadline() (time.Time, bool) {
	if s.deadline == nil {
		return time.Time{}, false
	}
	return *s.deadline, true
}

func (s *Scheduler) Start() {
	if s.deadline == nil || s.state != Idle {
		return
	}
	mlog.Debugf("deadline scheduler start, deadline %s", s.deadline.Format(time.RFC3339))
	s.evaluate()
}

func (s *Scheduler) evaluate() {
	if s.state == Stopped {
		return
	}
	remaining := s.deadline.Sub(s.clk.Now())
	switch {
	case remaining <= 0:
		s.state = Fired
		s.fire()
	case remaining < PollInterval:
		s.state = WaitingPrecise
		s.arm(remaining+Margin, func() {
			s.timer = nil
			if s.state != WaitingPrecise {
				return
			}
			s.state = Fired
			s.fire()
		})
	default:
		s.state = WaitingCoarse
		s.arm(PollInterval, func() {
			s.timer = nil
			if s.state != WaitingCoarse {
				return
			}
			s.evaluate()
		})
	}
}

func (s *Scheduler) arm(d time.Duration, f func()) {
	if s.timer != nil {
		s.timer.Stop()
	}
	mlog.Debugf("deadline scheduler %s %s, wake in %v", s.deadline.Format(time.RFC3339), s.state, d)
	s.timer = s.clk.AfterFunc(d, f)
}

func (s *Scheduler) fire() {
	mlog.Infof("deadline scheduler %s reached, refreshing", s.deadline.Format(time.RFC3339))
	if s.action != nil {
		s.action()
	}
}

// Stop cancels the pending timer. Safe to call any number of times.
func (s *Scheduler) Stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state != Fired {
		s.state = Stopped
	}
}
