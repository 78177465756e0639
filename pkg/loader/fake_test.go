package loader

import (
	"github.com/robotalks/mwboot/pkg/framework"
	"github.com/robotalks/mwboot/pkg/transport"
)

type pendingRecv struct {
	buf  []byte
	done transport.RecvFunc
}

type pendingSend struct {
	ch   int
	data []byte
	ctx  interface{}
	done transport.SendFunc
	wait int
}

type chunk struct {
	ch   int
	data []byte
}

// fakeTransport completes operations from a scheduler task, one step per pass.
type fakeTransport struct {
	channel  int
	incoming []chunk
	fail     []transport.Status
	recv     *pendingRecv
	send     *pendingSend
	sent     [][]byte
	recvs    int

	// sendDelay holds every send for that many steps, receives go on.
	sendDelay int
	// refuseRecv and refuseSend are returned by Recv and Send when set.
	refuseRecv error
	refuseSend error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{channel: transport.DefaultChannel}
}

// feed queues chunks arriving on the current channel.
func (f *fakeTransport) feed(chunks ...[]byte) {
	for _, data := range chunks {
		f.incoming = append(f.incoming, chunk{ch: f.channel, data: data})
	}
}

// failNext fails the first receive issued once all fed data is delivered.
func (f *fakeTransport) failNext(status transport.Status) {
	f.fail = append(f.fail, status)
}

func (f *fakeTransport) Recv(buf []byte, done transport.RecvFunc) error {
	if f.refuseRecv != nil {
		return f.refuseRecv
	}
	if f.recv != nil {
		return transport.ErrBusy
	}
	f.recvs++
	f.recv = &pendingRecv{buf: buf, done: done}
	return nil
}

func (f *fakeTransport) Send(ch int, data []byte, ctx interface{}, done transport.SendFunc) error {
	if f.refuseSend != nil {
		return f.refuseSend
	}
	if f.send != nil {
		return transport.ErrBusy
	}
	f.send = &pendingSend{ch: ch, data: append([]byte(nil), data...), ctx: ctx, done: done, wait: f.sendDelay}
	return nil
}

func (f *fakeTransport) step() {
	if s := f.send; s != nil {
		if s.wait > 0 {
			s.wait--
		} else {
			f.send = nil
			f.sent = append(f.sent, s.data)
			s.done(transport.StatusOK, s.ch, s.ctx)
		}
	}
	r := f.recv
	if r == nil {
		return
	}
	if len(f.fail) > 0 && len(f.incoming) == 0 {
		status := f.fail[0]
		f.fail, f.recv = f.fail[1:], nil
		r.done(status, f.channel, nil)
		return
	}
	if len(f.incoming) == 0 {
		return
	}
	in := f.incoming[0]
	n := copy(r.buf, in.data)
	if n == len(in.data) {
		f.incoming = f.incoming[1:]
	} else {
		f.incoming[0].data = in.data[n:]
	}
	f.recv = nil
	r.done(transport.StatusOK, in.ch, r.buf[:n])
}

func (f *fakeTransport) AddToScheduler(s *framework.Scheduler) error {
	return s.AddTask(framework.NewTask(f.step))
}
