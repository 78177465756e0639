package framework

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// toggleVBlank produces a frame edge every other sample.
type toggleVBlank struct {
	high bool
}

func (v *toggleVBlank) VBlank() bool {
	v.high = !v.high
	return v.high
}

func newTestScheduler(t *testing.T) *Scheduler {
	s := NewScheduler(&toggleVBlank{})
	require.NoError(t, s.Init(8, 8))
	return s
}

// passFrames runs passes until n more frame edges are seen.
func passFrames(s *Scheduler, n int) {
	target := s.Frames() + uint32(n)
	for s.Frames() < target {
		s.Pass()
	}
}

func TestSchedulerInit(t *testing.T) {
	s := NewScheduler(nil)
	require.Equal(t, ErrNotInitialized, s.AddTask(NewTask(func() {})))
	require.Equal(t, ErrNotInitialized, s.AddTimer(NewTimer(func() {})))
	require.Equal(t, ErrInvalidCapacity, s.Init(0, 1))
	require.NoError(t, s.Init(1, 1))
	require.NoError(t, s.Init(5, 5))
	require.NoError(t, s.AddTask(NewTask(func() {})))
	require.Equal(t, ErrTableFull, s.AddTask(NewTask(func() {})))
	require.NoError(t, s.AddTimer(NewTimer(func() {})))
	require.Equal(t, ErrTableFull, s.AddTimer(NewTimer(func() {})))
}

func TestSchedulerTasksInSlotOrder(t *testing.T) {
	s := newTestScheduler(t)
	var order []int
	for i := 0; i < 3; i++ {
		n := i
		require.NoError(t, s.AddTask(NewTask(func() { order = append(order, n) })))
	}
	disabled := NewTask(func() { order = append(order, 99) })
	disabled.Enable(false)
	require.NoError(t, s.AddTask(disabled))
	s.Pass()
	s.Pass()
	require.Equal(t, []int{0, 1, 2, 0, 1, 2}, order)
	require.False(t, disabled.Enabled())
}

func TestSchedulerAddTaskTwice(t *testing.T) {
	s := newTestScheduler(t)
	task := NewTask(func() {})
	require.NoError(t, s.AddTask(task))
	require.NoError(t, s.AddTask(task))
	require.Equal(t, 1, s.Tasks())
}

func TestSchedulerRemoveTaskFromCallback(t *testing.T) {
	s := newTestScheduler(t)
	var runs []string
	var self, other *Task
	self = NewTask(func() {
		runs = append(runs, "self")
		s.RemoveTask(self)
	})
	other = NewTask(func() { runs = append(runs, "other") })
	require.NoError(t, s.AddTask(self))
	require.NoError(t, s.AddTask(other))
	s.Pass()
	require.Equal(t, 1, s.Tasks())
	s.Pass()
	require.Equal(t, []string{"self", "other", "other"}, runs)
}

func TestSchedulerRemoveAndReAddInCallback(t *testing.T) {
	s := newTestScheduler(t)
	count := 0
	var task *Task
	task = NewTask(func() {
		count++
		s.RemoveTask(task)
		require.NoError(t, s.AddTask(task))
	})
	require.NoError(t, s.AddTask(task))
	s.Pass()
	s.Pass()
	require.Equal(t, 2, count)
	require.Equal(t, 1, s.Tasks())
}

func TestSchedulerFrameEdges(t *testing.T) {
	high := false
	s := NewScheduler(VBlankFunc(func() bool { return high }))
	require.NoError(t, s.Init(1, 1))
	s.Pass()
	require.Equal(t, uint32(0), s.Frames())
	high = true
	s.Pass()
	s.Pass()
	require.Equal(t, uint32(1), s.Frames())
	high = false
	s.Pass()
	high = true
	s.Pass()
	require.Equal(t, uint32(2), s.Frames())
}

func TestTimerAutoReload(t *testing.T) {
	for _, interval := range []int{1, 2, 3, 7} {
		s := newTestScheduler(t)
		var fired []uint32
		timer := NewTimer(func() { fired = append(fired, s.Frames()) })
		timer.Start(interval, true)
		require.NoError(t, s.AddTimer(timer))
		const frames = 20
		passFrames(s, frames)
		require.Len(t, fired, frames/interval, "interval %d", interval)
		for n, frame := range fired {
			require.Equal(t, uint32((n+1)*interval), frame, "interval %d", interval)
		}
		require.True(t, timer.Active())
	}
}

func TestTimerOneShot(t *testing.T) {
	s := newTestScheduler(t)
	var fired []uint32
	timer := NewTimer(func() { fired = append(fired, s.Frames()) })
	timer.Start(3, false)
	require.NoError(t, s.AddTimer(timer))
	passFrames(s, 10)
	require.Equal(t, []uint32{3}, fired)
	require.False(t, timer.Active())
	require.Equal(t, 0, timer.Interval())

	timer.Start(2, false)
	passFrames(s, 5)
	require.Equal(t, []uint32{3, 12}, fired)
}

func TestTimerRemoveFromCallback(t *testing.T) {
	s := newTestScheduler(t)
	count := 0
	var timer *Timer
	timer = NewTimer(func() {
		count++
		s.RemoveTimer(timer)
	})
	timer.Start(1, true)
	require.NoError(t, s.AddTimer(timer))
	passFrames(s, 4)
	require.Equal(t, 1, count)
	require.Equal(t, 0, s.Timers())
}

func TestSchedulerRunEnd(t *testing.T) {
	s := newTestScheduler(t)
	passes := 0
	require.NoError(t, s.AddTask(NewTask(func() {
		if passes++; passes == 5 {
			s.End(42)
		}
	})))
	require.Equal(t, 42, s.Run())
	require.Equal(t, 5, passes)
}

func TestPendPost(t *testing.T) {
	s := newTestScheduler(t)
	var trace []string
	ticks := 0
	require.NoError(t, s.AddTask(NewTask(func() {
		if ticks++; ticks == 3 {
			trace = append(trace, "post")
			s.Post(7)
		}
	})))
	trace = append(trace, "pend")
	v := s.Pend()
	trace = append(trace, "resumed")
	require.Equal(t, 7, v)
	require.Equal(t, []string{"pend", "post", "resumed"}, trace)
	require.False(t, s.Pending())
}

func TestPendNested(t *testing.T) {
	s := newTestScheduler(t)
	var results []int
	outer := NewTimer(func() {
		// runs inside the outer Pend, nests a second one.
		inner := NewTimer(func() { s.Post(2) })
		inner.Start(2, false)
		require.NoError(t, s.AddTimer(inner))
		results = append(results, s.Pend())
		s.Post(1)
	})
	outer.Start(1, false)
	require.NoError(t, s.AddTimer(outer))
	results = append(results, s.Pend())
	require.Equal(t, []int{2, 1}, results)
}

func TestPostWithoutPend(t *testing.T) {
	s := newTestScheduler(t)
	require.NotPanics(t, func() { s.Post(1) })
	require.False(t, s.Pending())
}

func TestPendEndedReturns(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.AddTask(NewTask(func() { s.End(3) })))
	require.Equal(t, 0, s.Pend())
	require.Equal(t, 3, s.Run())
}

func TestWaitFrames(t *testing.T) {
	s := newTestScheduler(t)
	ran := 0
	require.NoError(t, s.AddTask(NewTask(func() { ran++ })))
	start := s.Frames()
	require.NoError(t, s.WaitFrames(2))
	require.Equal(t, start+2, s.Frames())
	require.True(t, ran > 2)
	require.Equal(t, 0, s.Timers())
}

func TestMailbox(t *testing.T) {
	s := newTestScheduler(t)
	mb := NewMailbox(4)
	require.NoError(t, s.Add(mb))
	done := make(chan struct{})
	var got []int
	go func() {
		for i := 0; i < 10; i++ {
			n := i
			mb.Deliver(func() { got = append(got, n) })
		}
		mb.Deliver(func() { s.End(0) })
		close(done)
	}()
	s.Run()
	<-done
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errs.Add(nil, ErrTableFull)
	require.Equal(t, ErrTableFull, errs.Aggregate())
	errs.Add(ErrNotInitialized)
	require.Contains(t, errs.Aggregate().Error(), "table full")
	require.Contains(t, errs.Aggregate().Error(), "not initialized")
}
