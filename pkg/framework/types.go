package framework

import (
	"context"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// VBlank samples the vertical-blank status flag of the display controller.
// The scheduler counts a frame on every low to high transition.
type VBlank interface {
	VBlank() bool
}

// VBlankFunc is the func form of VBlank.
type VBlankFunc func() bool

// VBlank implements VBlank.
func (f VBlankFunc) VBlank() bool {
	return f()
}

// SchedulerAdder provides specific logic to register tasks and timers.
type SchedulerAdder interface {
	AddToScheduler(*Scheduler) error
}

// Task is a callback executed once per scheduler pass while enabled.
type Task struct {
	Func func()

	disabled bool
	deleted  bool
}

// NewTask creates an enabled Task.
func NewTask(fn func()) *Task {
	return &Task{Func: fn}
}

// Enable enables or disables the task without removing it.
func (t *Task) Enable(en bool) {
	t.disabled = !en
}

// Enabled indicates whether the task runs on scheduler passes.
func (t *Task) Enabled() bool {
	return !t.disabled
}

// Timer fires its callback after Interval frame edges.
// A timer with a zero interval is idle.
type Timer struct {
	Func func()

	interval int
	elapsed  int
	reload   bool
	deleted  bool
}

// NewTimer creates an idle Timer.
func NewTimer(fn func()) *Timer {
	return &Timer{Func: fn}
}

// Start arms the timer to fire after frames frame edges.
// With autoReload the timer fires every frames edges until stopped.
func (t *Timer) Start(frames int, autoReload bool) {
	if frames < 0 {
		frames = 0
	}
	t.interval, t.elapsed, t.reload = frames, 0, autoReload
}

// Stop disarms the timer.
func (t *Timer) Stop() {
	t.interval, t.elapsed = 0, 0
}

// Active indicates the timer is armed.
func (t *Timer) Active() bool {
	return t.interval > 0
}

// Interval returns the armed interval in frames.
func (t *Timer) Interval() int {
	return t.interval
}

// Elapsed returns the frames counted since the timer was last armed or fired.
func (t *Timer) Elapsed() int {
	return t.elapsed
}
