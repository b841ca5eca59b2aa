// Package debounce implements a single-slot delayed task.
//
// Arming the task starts (or restarts) a countdown; the function runs once
// the countdown elapses without another Arm. A burst of Arm calls therefore
// collapses into one execution. Drain runs the function immediately and is
// meant for shutdown paths that must not lose a pending run.
package debounce

import (
	"sync"
	"time"
)

// Task coalesces bursts of Arm calls into a single execution of fn.
//
// The zero value is not usable; construct with New. Task serializes all
// executions of fn: a timer-driven run, a Drain and a concurrent Arm never
// overlap.
type Task struct {
	mu       sync.Mutex
	window   time.Duration
	fn       func() error
	onError  func(error)
	timer   *time.Timer
	stopped bool
}

// New returns a Task that runs fn after window of quiescence following an
// Arm call. onError is invoked with any error fn returns from a timer-driven
// run; it may be nil.
func New(window time.Duration, fn func() error, onError func(error)) *Task {
	return &Task{window: window, fn: fn, onError: onError}
}

// Arm schedules fn to run after the quiescence window. If a run is already
// pending, the countdown restarts instead of a second run being scheduled.
// Arm after Stop or during Drain is a no-op for the stopped case and a
// rearm for the in-flight case.
func (t *Task) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Reset(t.window)
		return
	}
	t.timer = time.AfterFunc(t.window, t.fire)
}

func (t *Task) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.timer == nil {
		return
	}
	t.timer = nil
	if err := t.fn(); err != nil && t.onError != nil {
		t.onError(err)
	}
}

// Drain cancels any pending countdown and runs fn synchronously, returning
// its error. It runs fn even when nothing is pending, so callers can use it
// as an unconditional final flush.
func (t *Task) Drain() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	return t.fn()
}

// Stop cancels any pending run without executing it. The task cannot be
// re-armed afterwards.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Pending reports whether a run is currently scheduled.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
