package transport

import (
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/framework"
)

// Async adapts blocking connections into a Transport. Reads and writes run
// on their own goroutines and complete through a Mailbox drained by the
// scheduler. Connections are attached by endpoints and replace each other.
type Async struct {
	// Channel is the channel reported for received data and accepted for sends.
	Channel int
	// OnAttach is called on the scheduler goroutine once a new connection is
	// attached and no operation on a previous connection is in flight.
	OnAttach func()

	mb *framework.Mailbox

	conn io.ReadWriteCloser
	gen  int

	recvBuf  []byte
	recvDone RecvFunc
	recvGen  int
	recvBusy bool

	sendBusy bool
	sendGen  int

	attachPending bool
}

// NewAsync creates an Async.
func NewAsync() *Async {
	return &Async{
		Channel: DefaultChannel,
		mb:      framework.NewMailbox(0),
	}
}

// AddToScheduler implements framework.SchedulerAdder.
func (a *Async) AddToScheduler(s *framework.Scheduler) error {
	return a.mb.AddToScheduler(s)
}

// Mailbox returns the mailbox completions are delivered through.
func (a *Async) Mailbox() *framework.Mailbox {
	return a.mb
}

// Attach hands conn over to the transport. It is safe for concurrent use.
func (a *Async) Attach(conn io.ReadWriteCloser) {
	a.mb.Deliver(func() { a.attach(conn) })
}

// Detach drops the current connection. It is safe for concurrent use.
func (a *Async) Detach() {
	a.mb.Deliver(func() { a.attach(nil) })
}

// Connected indicates a connection is attached.
func (a *Async) Connected() bool {
	return a.conn != nil
}

func (a *Async) attach(conn io.ReadWriteCloser) {
	if a.conn != nil {
		a.conn.Close()
	}
	a.conn = conn
	a.gen++
	if conn == nil {
		glog.V(1).Info("transport: detached")
		return
	}
	glog.V(1).Info("transport: attached")
	if a.recvDone != nil && !a.recvBusy {
		a.startRecv()
	}
	a.attachPending = true
	a.notifyAttach()
}

func (a *Async) notifyAttach() {
	if !a.attachPending || a.conn == nil {
		return
	}
	if (a.recvBusy && a.recvGen != a.gen) || (a.sendBusy && a.sendGen != a.gen) {
		return
	}
	a.attachPending = false
	if a.OnAttach != nil {
		a.OnAttach()
	}
}

// Recv implements Transport. Without a connection the receive waits for
// the next one.
func (a *Async) Recv(buf []byte, done RecvFunc) error {
	if a.recvBusy || a.recvDone != nil {
		return ErrBusy
	}
	a.recvBuf, a.recvDone = buf, done
	if a.conn != nil {
		a.startRecv()
	}
	return nil
}

func (a *Async) startRecv() {
	conn, gen, buf := a.conn, a.gen, a.recvBuf
	a.recvBusy, a.recvGen = true, gen
	go func() {
		n, err := conn.Read(buf)
		a.mb.Deliver(func() { a.completeRecv(gen, n, err) })
	}()
}

func (a *Async) completeRecv(gen, n int, err error) {
	buf, done := a.recvBuf, a.recvDone
	a.recvBusy, a.recvBuf, a.recvDone = false, nil, nil
	status := StatusOK
	switch {
	case gen != a.gen:
		status, n = StatusClosed, 0
	case n > 0:
	case err != nil:
		if err != io.EOF {
			glog.Warningf("transport: read: %v", err)
		}
		status = StatusClosed
		a.drop()
	}
	done(status, a.Channel, buf[:n])
	a.notifyAttach()
}

// drop closes the connection after a failure; later operations wait for
// the next attach.
func (a *Async) drop() {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
		a.gen++
	}
}

// Send implements Transport.
func (a *Async) Send(ch int, data []byte, ctx interface{}, done SendFunc) error {
	if a.sendBusy {
		return ErrBusy
	}
	a.sendBusy = true
	conn, gen := a.conn, a.gen
	a.sendGen = gen
	if ch != a.Channel || conn == nil {
		status := StatusChannelError
		if conn == nil {
			status = StatusClosed
		}
		go a.mb.Deliver(func() { a.completeSend(gen, status, ch, ctx, done) })
		return nil
	}
	go func() {
		status := StatusOK
		if _, err := conn.Write(data); err != nil {
			glog.Warningf("transport: write: %v", err)
			status = StatusClosed
		}
		a.mb.Deliver(func() { a.completeSend(gen, status, ch, ctx, done) })
	}()
	return nil
}

func (a *Async) completeSend(gen int, status Status, ch int, ctx interface{}, done SendFunc) {
	a.sendBusy = false
	if gen != a.gen && status == StatusOK {
		status = StatusClosed
	} else if status == StatusClosed && gen == a.gen {
		a.drop()
	}
	if done != nil {
		done(status, ch, ctx)
	}
	a.notifyAttach()
}
