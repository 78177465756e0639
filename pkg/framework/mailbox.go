package framework

import (
	"context"
)

// Mailbox hands work from other goroutines over to the scheduler
// goroutine. Delivered funcs run inside a scheduler task, in order.
type Mailbox struct {
	ch   chan func()
	task *Task
}

// DefaultMailboxSize is the default number of funcs buffered before Deliver blocks.
const DefaultMailboxSize = 16

// NewMailbox creates a Mailbox buffering size funcs.
func NewMailbox(size int) *Mailbox {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	m := &Mailbox{ch: make(chan func(), size)}
	m.task = NewTask(m.drain)
	return m
}

// Deliver queues fn to run on the scheduler goroutine. It blocks while
// the mailbox is full. Safe for concurrent use.
func (m *Mailbox) Deliver(fn func()) {
	m.ch <- fn
}

// DeliverContext is Deliver giving up when ctx is done.
func (m *Mailbox) DeliverContext(ctx context.Context, fn func()) error {
	select {
	case m.ch <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddToScheduler implements SchedulerAdder.
func (m *Mailbox) AddToScheduler(s *Scheduler) error {
	return s.AddTask(m.task)
}

// drain runs at most the funcs queued when the pass started, so a
// busy producer cannot starve the other tasks.
func (m *Mailbox) drain() {
	for n := len(m.ch); n > 0; n-- {
		select {
		case fn := <-m.ch:
			fn()
		default:
			return
		}
	}
}
