package loader

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/comm"
	"github.com/robotalks/mwboot/pkg/transport"
	"github.com/robotalks/mwboot/pkg/ui"
)

// afterReply is what happens once a reply is sent.
type afterReply int

const (
	listenAfter afterReply = iota
	noListen
	runAfter
)

type sendCtx struct {
	epoch int
	after afterReply
	addr  uint32
}

type handlerFunc func(l *Loader, req comm.Request) (comm.Frame, sendCtx)

func replyListen(f comm.Frame) (comm.Frame, sendCtx) {
	return f, sendCtx{after: listenAfter}
}

func (l *Loader) listen() {
	l.state = StateCommand
	l.cmdLen = 0
	l.listenWanted = true
	l.kick()
}

// kick starts listening once nothing of an abandoned operation is in flight.
func (l *Loader) kick() {
	if l.state != StateCommand || !l.listenWanted || l.recvBusy || l.writeBusy {
		return
	}
	l.listenWanted = false
	l.process()
}

// process dispatches the frame accumulated in buffer 0 or receives more.
// Every reply leaves from here, one at a time: while a reply is in flight
// a ready frame waits for its completion.
func (l *Loader) process() {
	b := l.bufs[0].data[:l.cmdLen]
	cmd, length, err := comm.ParseHeader(b)
	complete := err == nil && l.cmdLen >= comm.HeaderLen+length
	if !l.rejected && !complete && (err == nil || err == comm.ErrShortFrame) {
		l.recvCommand()
		return
	}
	if l.sendBusy {
		l.dispatchPending = true
		return
	}
	l.dispatchPending = false
	switch {
	case l.rejected:
		l.rejected = false
		l.send(replyListen(comm.Error()))
	case err != nil:
		glog.Warningf("loader: %v", err)
		l.cmdLen = 0
		l.send(replyListen(comm.Error()))
	default:
		l.dispatch(comm.Frame{Cmd: cmd, Data: b[comm.HeaderLen : comm.HeaderLen+length]}, b[comm.HeaderLen+length:])
	}
}

func (l *Loader) recvCommand() {
	if l.recvBusy {
		return
	}
	epoch := l.epoch
	l.recvBusy = true
	err := l.cfg.Transport.Recv(l.bufs[0].data[l.cmdLen:], func(status transport.Status, ch int, data []byte) {
		l.recvBusy = false
		if epoch != l.epoch {
			l.kick()
			return
		}
		l.commandReceived(status, ch, len(data))
	})
	if err != nil {
		l.recvBusy = false
		glog.Errorf("loader: receive: %v", err)
		// listening resumes on Restart.
		l.state = StateIdle
		l.transportError(transport.StatusClosed)
	}
}

func (l *Loader) commandReceived(status transport.Status, ch, n int) {
	if status != transport.StatusOK {
		l.transportError(status)
		return
	}
	if ch != l.cfg.Channel {
		glog.Warningf("loader: data on channel %d", ch)
		l.cmdLen = 0
		l.rejected = true
		l.process()
		return
	}
	l.cmdLen += n
	l.process()
}

// dispatch handles one request frame. rest holds the bytes received after
// the frame.
func (l *Loader) dispatch(f comm.Frame, rest []byte) {
	var reply comm.Frame
	var ctx sendCtx
	req, err := comm.ParseRequest(f)
	if err != nil {
		glog.Warningf("loader: %s: %v", f.Cmd, err)
		reply, ctx = replyListen(comm.Error())
	} else {
		glog.V(1).Infof("loader: %s", f.Cmd)
		reply, ctx = l.handlers[f.Cmd](l, req)
	}
	// the reply is staged before rest moves over the request.
	n := l.stage(reply)
	l.cmdLen = copy(l.bufs[0].data[:], rest)
	l.transmit(n, ctx)
	if ctx.after == noListen && l.state == StateTransfer {
		l.startTransfer()
	}
}

func (l *Loader) send(f comm.Frame, ctx sendCtx) {
	l.transmit(l.stage(f), ctx)
}

// stage copies f into the reply buffer and returns the frame length.
func (l *Loader) stage(f comm.Frame) int {
	h := f.Header()
	n := copy(l.reply[:], h[:])
	return n + copy(l.reply[n:], f.Data)
}

func (l *Loader) transmit(n int, ctx sendCtx) {
	ctx.epoch = l.epoch
	l.sendBusy = true
	if err := l.cfg.Transport.Send(l.cfg.Channel, l.reply[:n], ctx, l.sent); err != nil {
		l.sendBusy = false
		glog.Errorf("loader: send: %v", err)
		l.transportError(transport.StatusClosed)
	}
}

func (l *Loader) sent(status transport.Status, ch int, c interface{}) {
	l.sendBusy = false
	ctx := c.(sendCtx)
	if status != transport.StatusOK {
		glog.Warningf("loader: reply not sent: %s", status)
	}
	current := ctx.epoch == l.epoch
	if current && ctx.after == runAfter {
		l.handoff(ctx.addr)
		return
	}
	if l.state == StateCommand && (l.dispatchPending || (current && ctx.after == listenAfter)) {
		l.process()
	}
}

func (l *Loader) handoff(addr uint32) {
	l.state = StateHandoff
	l.cfg.Display.Message(ui.LevelInfo, fmt.Sprintf("BOOTING 0x%06X", addr))
	if err := l.cfg.Sched.WaitFrames(HandoffFrames); err != nil {
		glog.Warningf("loader: wait before handoff: %v", err)
	}
	glog.Infof("loader: handoff to 0x%06X", addr)
	l.cfg.Handoff(addr)
}

func (l *Loader) versionGet(comm.Request) (comm.Frame, sendCtx) {
	return replyListen(comm.OK([]byte{VersionMajor, VersionMinor}))
}

func (l *Loader) echo(req comm.Request) (comm.Frame, sendCtx) {
	return replyListen(comm.OK(req.(comm.Echo).Data))
}

func (l *Loader) idGet(comm.Request) (comm.Frame, sendCtx) {
	id, err := l.cfg.Flash.ReadID()
	if err != nil {
		glog.Errorf("loader: read id: %v", err)
		return replyListen(comm.Error())
	}
	return replyListen(comm.OK(id.Bytes()))
}

func (l *Loader) checkRange(r comm.Range) error {
	if err := r.Check(l.cfg.ChipLength); err != nil {
		return err
	}
	if l.cfg.ProtectBootloader && r.Len > 0 && uint64(r.Addr)+uint64(r.Len) > uint64(l.cfg.BootAddr) {
		return comm.ErrOutOfRange
	}
	return nil
}

func (l *Loader) erase(req comm.Request) (comm.Frame, sendCtx) {
	r := req.(comm.Erase).Range
	if err := l.checkRange(r); err != nil {
		glog.Warningf("loader: erase 0x%06X+%d: %v", r.Addr, r.Len, err)
		return replyListen(comm.Error())
	}
	d := l.cfg.Display
	d.Message(ui.LevelInfo, fmt.Sprintf("ERASING 0x%06X +%d", r.Addr, r.Len))
	err := l.cfg.Flash.RangeEraseProgress(r.Addr, r.Len, d.Progress)
	if err != nil {
		d.Message(ui.LevelError, fmt.Sprintf("ERASE FAILED: %v", err))
		return replyListen(comm.Error())
	}
	d.Message(ui.LevelInfo, "ERASE DONE")
	return replyListen(comm.OK(nil))
}

func (l *Loader) program(req comm.Request) (comm.Frame, sendCtx) {
	r := req.(comm.Program).Range
	if err := l.checkRange(r); err != nil {
		glog.Warningf("loader: program 0x%06X+%d: %v", r.Addr, r.Len, err)
		return replyListen(comm.Error())
	}
	if r.Len == 0 {
		return replyListen(comm.OK(nil))
	}
	l.state = StateTransfer
	l.xfer = transfer{
		addr:    r.Addr,
		length:  r.Len,
		toRecv:  int(r.Len),
		toWrite: int(r.Len),
	}
	return comm.OK(nil), sendCtx{after: noListen}
}

func (l *Loader) read(comm.Request) (comm.Frame, sendCtx) {
	return replyListen(comm.Error())
}

func (l *Loader) run(req comm.Request) (comm.Frame, sendCtx) {
	return comm.OK(nil), sendCtx{after: runAfter, addr: req.(comm.Run).Addr}
}

func (l *Loader) autorun(comm.Request) (comm.Frame, sendCtx) {
	return comm.OK(nil), sendCtx{after: runAfter, addr: EntryPoint}
}

func (l *Loader) bootAddrGet(comm.Request) (comm.Frame, sendCtx) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, l.cfg.BootAddr)
	return replyListen(comm.OK(b))
}
