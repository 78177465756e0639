package flash

import (
	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/framework"
)

// TaskScheduler is the part of the scheduler ProgramAsync drives its
// polling task on.
type TaskScheduler interface {
	AddTask(*framework.Task) error
	RemoveTask(*framework.Task)
}

// DoneFunc receives the outcome of an asynchronous program: the number of
// bytes stored and the error, if any.
type DoneFunc func(n int, err error)

type asyncProgram struct {
	sched TaskScheduler
	src   wordSource
	next  uint32
	done  DoneFunc

	polling  bool
	cycle    uint32
	pollAddr uint32
	pollWord uint16
}

// ProgramAsync programs data at addr without blocking. Each scheduler pass
// issues at most one write buffer cycle and one poll step. The task is
// removed from the scheduler before done is called, so done may start the
// next operation. Only one asynchronous operation may be in flight.
func (d *Driver) ProgramAsync(sched TaskScheduler, addr uint32, data []byte, done DoneFunc) error {
	if d.async != nil {
		return ErrBusy
	}
	if err := CheckRange(addr, uint32(len(data))); err != nil {
		return err
	}
	op := &asyncProgram{
		sched: sched,
		src:   wordSource{addr: addr, data: data},
		done:  done,
	}
	op.next = op.src.start()
	if d.task == nil {
		d.task = framework.NewTask(d.asyncStep)
	}
	d.async = op
	if err := sched.AddTask(d.task); err != nil {
		d.async = nil
		return err
	}
	return nil
}

// Busy indicates an asynchronous operation is in flight.
func (d *Driver) Busy() bool {
	return d.async != nil
}

func (d *Driver) asyncStep() {
	op := d.async
	if op == nil {
		return
	}
	if !op.polling {
		if op.next >= op.src.end() {
			d.finishAsync(len(op.src.data), nil)
			return
		}
		var words [BufferWords]uint16
		cnt := op.src.fill(words[:], op.next)
		n := d.WriteBuffer(op.next, words[:cnt])
		op.cycle = op.next
		op.pollAddr = op.next + uint32(n-1)*2
		op.pollWord = words[n-1]
		op.next += uint32(n) * 2
		op.polling = true
	}
	state, status := d.pollData(op.pollAddr, op.pollWord)
	switch state {
	case pollBusy:
		return
	case pollFailed:
		glog.Errorf("flash: program failed at 0x%06X, status 0x%04X", op.pollAddr, status)
		d.finishAsync(op.src.written(op.cycle), &ProgramError{Addr: op.pollAddr, Status: status})
		return
	}
	op.polling = false
	if op.next >= op.src.end() {
		d.finishAsync(len(op.src.data), nil)
	}
}

func (d *Driver) finishAsync(n int, err error) {
	op := d.async
	d.async = nil
	op.sched.RemoveTask(d.task)
	if op.done != nil {
		op.done(n, err)
	}
}
