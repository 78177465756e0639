package framework

import (
	"github.com/golang/glog"
)

// Scheduler is the cooperative executor everything else runs on.
// It is not safe for concurrent use: all tasks, timers and callbacks
// run on the goroutine calling Run. Other goroutines hand work over
// through a Mailbox.
type Scheduler struct {
	vblank VBlank

	tasks  []*Task
	timers []*Timer
	inited bool

	// nesting depth of table iterations; compaction only at depth 0.
	taskIter  int
	timerIter int

	frames     uint32
	lastVBlank bool

	ended bool
	code  int

	pend *pendPoint
}

type pendPoint struct {
	prev   *pendPoint
	posted bool
	value  int
}

// NewScheduler creates a Scheduler counting frames from vblank.
func NewScheduler(vblank VBlank) *Scheduler {
	return &Scheduler{vblank: vblank}
}

// Init allocates the fixed-capacity task and timer tables.
// Calling Init again is a no-op.
func (s *Scheduler) Init(maxTasks, maxTimers int) error {
	if s.inited {
		return nil
	}
	if maxTasks <= 0 || maxTimers <= 0 {
		return ErrInvalidCapacity
	}
	s.tasks = make([]*Task, 0, maxTasks)
	s.timers = make([]*Timer, 0, maxTimers)
	s.inited = true
	glog.V(3).Infof("scheduler: %d task slots, %d timer slots", maxTasks, maxTimers)
	return nil
}

// Add registers SchedulerAdders.
func (s *Scheduler) Add(adders ...SchedulerAdder) error {
	var errs AggregatedError
	for _, adder := range adders {
		errs.Add(adder.AddToScheduler(s))
	}
	return errs.Aggregate()
}

// AddTask registers a task. Adding a task which is pending removal
// keeps it registered.
func (s *Scheduler) AddTask(t *Task) error {
	if !s.inited {
		return ErrNotInitialized
	}
	for _, task := range s.tasks {
		if task == t {
			t.deleted = false
			return nil
		}
	}
	if len(s.tasks) == cap(s.tasks) {
		return ErrTableFull
	}
	t.deleted = false
	s.tasks = append(s.tasks, t)
	return nil
}

// RemoveTask marks the task for removal. The slot is reclaimed
// after the current pass over the task table.
func (s *Scheduler) RemoveTask(t *Task) {
	for _, task := range s.tasks {
		if task == t {
			t.deleted = true
			if s.taskIter == 0 {
				s.compactTasks()
			}
			return
		}
	}
}

// AddTimer registers a timer.
func (s *Scheduler) AddTimer(t *Timer) error {
	if !s.inited {
		return ErrNotInitialized
	}
	for _, timer := range s.timers {
		if timer == t {
			t.deleted = false
			return nil
		}
	}
	if len(s.timers) == cap(s.timers) {
		return ErrTableFull
	}
	t.deleted = false
	s.timers = append(s.timers, t)
	return nil
}

// RemoveTimer marks the timer for removal.
func (s *Scheduler) RemoveTimer(t *Timer) {
	for _, timer := range s.timers {
		if timer == t {
			t.deleted = true
			if s.timerIter == 0 {
				s.compactTimers()
			}
			return
		}
	}
}

// Tasks returns the number of registered tasks, including those
// pending removal.
func (s *Scheduler) Tasks() int {
	return len(s.tasks)
}

// Timers returns the number of registered timers, including those
// pending removal.
func (s *Scheduler) Timers() int {
	return len(s.timers)
}

// Frames returns the number of frame edges seen so far.
func (s *Scheduler) Frames() uint32 {
	return s.frames
}

// Run runs passes until End is called and returns the code given to End.
func (s *Scheduler) Run() int {
	for !s.ended {
		s.Pass()
	}
	code := s.code
	if s.pend == nil {
		s.ended = false
	}
	return code
}

// End requests Run to return code. It takes effect at the end of the
// current pass.
func (s *Scheduler) End(code int) {
	s.ended, s.code = true, code
}

// Pass runs all enabled tasks once, then samples VBlank and runs the
// timers on a frame edge.
func (s *Scheduler) Pass() {
	s.runTasks()
	vb := s.vblank != nil && s.vblank.VBlank()
	edge := vb && !s.lastVBlank
	s.lastVBlank = vb
	if edge {
		s.frames++
		s.runTimers()
	}
}

// Pend suspends the caller while the scheduler keeps running passes,
// and returns the value given to the matching Post. Pends nest; Post
// always resumes the innermost one. If End is called while pending,
// Pend returns 0.
func (s *Scheduler) Pend() int {
	p := &pendPoint{prev: s.pend}
	s.pend = p
	for !p.posted && !s.ended {
		s.Pass()
	}
	if !p.posted {
		s.pend = p.prev
	}
	return p.value
}

// Post resumes the innermost Pend with value. Without an active Pend
// Post does nothing.
func (s *Scheduler) Post(value int) {
	p := s.pend
	if p == nil {
		return
	}
	p.posted, p.value = true, value
	s.pend = p.prev
}

// Pending indicates a Pend is waiting for Post.
func (s *Scheduler) Pending() bool {
	return s.pend != nil
}

// WaitFrames blocks the caller for frames frame edges while the
// scheduler keeps servicing tasks and timers.
func (s *Scheduler) WaitFrames(frames int) error {
	if frames <= 0 {
		return nil
	}
	timer := NewTimer(func() { s.Post(0) })
	timer.Start(frames, false)
	if err := s.AddTimer(timer); err != nil {
		return err
	}
	s.Pend()
	s.RemoveTimer(timer)
	return nil
}

func (s *Scheduler) runTasks() {
	s.taskIter++
	for i := 0; i < len(s.tasks); i++ {
		if t := s.tasks[i]; !t.deleted && !t.disabled && t.Func != nil {
			t.Func()
		}
	}
	if s.taskIter--; s.taskIter == 0 {
		s.compactTasks()
	}
}

func (s *Scheduler) runTimers() {
	s.timerIter++
	for i := 0; i < len(s.timers); i++ {
		t := s.timers[i]
		if t.deleted || t.interval == 0 {
			continue
		}
		if t.elapsed++; t.elapsed < t.interval {
			continue
		}
		if t.reload {
			t.elapsed = 0
		} else {
			t.interval, t.elapsed = 0, 0
		}
		if t.Func != nil {
			t.Func()
		}
	}
	if s.timerIter--; s.timerIter == 0 {
		s.compactTimers()
	}
}

func (s *Scheduler) compactTasks() {
	n := 0
	for _, t := range s.tasks {
		if !t.deleted {
			s.tasks[n] = t
			n++
		}
	}
	for i := n; i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = s.tasks[:n]
}

func (s *Scheduler) compactTimers() {
	n := 0
	for _, t := range s.timers {
		if !t.deleted {
			s.timers[n] = t
			n++
		}
	}
	for i := n; i < len(s.timers); i++ {
		s.timers[i] = nil
	}
	s.timers = s.timers[:n]
}
