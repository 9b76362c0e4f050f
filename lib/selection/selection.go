// Package selection holds what a lookup currently points at and whether its
// candidate dropdown is open.
package selection

import (
	"time"

	"github.com/pthm/hxlookup/lib/label"
	"github.com/pthm/hxlookup/lib/record"
)

// DefaultCloseDelay is how long the dropdown stays open after the input loses
// focus, so a pointer click on a candidate lands before the close.
const DefaultCloseDelay = 300 * time.Millisecond

// Selection is the current value of a lookup. IsSet alone decides whether the
// pill or the search box is shown.
type Selection struct {
	ID         string
	Label      string
	LinkTarget string
	IsSet      bool
}

// LinkFor returns the record link for id.
func LinkFor(id string) string {
	if id == "" {
		return ""
	}
	return "/" + id
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime timer.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is the single source of truth for the selection and dropdown
// visibility of one lookup. It is not safe for concurrent use.
type State struct {
	sel   Selection
	open  bool
	delay time.Duration
	sched Scheduler

	timer Timer
	// gen changes on every arm or cancel of the deferred close so a timer
	// that already fired cannot close the dropdown after a pick.
	gen uint64
}

// New returns an empty State. A nil scheduler uses SystemScheduler and a
// non-positive delay uses DefaultCloseDelay.
func New(sched Scheduler, delay time.Duration) *State {
	if sched == nil {
		sched = SystemScheduler{}
	}
	if delay <= 0 {
		delay = DefaultCloseDelay
	}
	return &State{sched: sched, delay: delay}
}

// Current returns the selection.
func (s *State) Current() Selection {
	return s.sel
}

// IsOpen reports whether the dropdown is visible.
func (s *State) IsOpen() bool {
	return s.open
}

// ClosePending reports whether a deferred close is armed.
func (s *State) ClosePending() bool {
	return s.timer != nil
}

// Select makes rec the current selection and closes the dropdown. The new
// value is built completely before it replaces the old one.
func (s *State) Select(rec record.Record, f label.Formatter) Selection {
	id := rec.ID()
	next := Selection{
		ID:         id,
		Label:      f.Format(rec),
		LinkTarget: LinkFor(id),
		IsSet:      true,
	}
	s.sel = next
	s.open = false
	return next
}

// Clear removes the selection. It returns the previous value and whether
// anything changed; clearing an empty selection is a no-op.
func (s *State) Clear() (Selection, bool) {
	prev := s.sel
	if !prev.IsSet && prev.ID == "" {
		return prev, false
	}
	s.sel = Selection{}
	return prev, true
}

// Focus opens the dropdown and drops any pending close.
func (s *State) Focus() {
	s.CancelClose()
	s.open = true
}

// Close hides the dropdown immediately.
func (s *State) Close() {
	s.CancelClose()
	s.open = false
}

// Blur arms the deferred close. When the timer fires, the close is handed to
// post so it runs wherever the caller serialises state changes. Re-arming
// replaces an earlier pending close.
func (s *State) Blur(post func(func())) {
	s.CancelClose()
	s.gen++
	gen := s.gen
	s.timer = s.sched.AfterFunc(s.delay, func() {
		post(func() { s.fire(gen) })
	})
}

// CancelClose stops a pending deferred close. It reports whether one was
// pending.
func (s *State) CancelClose() bool {
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.gen++
	return true
}

func (s *State) fire(gen uint64) {
	if gen != s.gen {
		return
	}
	s.timer = nil
	s.open = false
}
