package loader

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/transport"
	"github.com/robotalks/mwboot/pkg/ui"
)

// startTransfer begins streaming after the PROGRAM reply. Bytes received
// right after the request already sit in buffer 0 and make it the first
// full buffer; otherwise buffer 1 is filled first.
func (l *Loader) startTransfer() {
	x := &l.xfer
	glog.Infof("loader: program 0x%06X +%d", x.addr, x.length)
	l.cfg.Display.Clear()
	l.cfg.Display.Message(ui.LevelInfo, fmt.Sprintf("PROGRAMMING 0x%06X +%d", x.addr, x.length))
	if n := l.cmdLen; n > 0 {
		l.cmdLen = 0
		l.bufs[0].n = n
		x.received = n
		x.full, x.maxFull = 1, 1
		x.writeIdx, x.recvIdx = 0, 1
		if x.toRecv -= n; x.toRecv < 0 {
			x.toRecv = 0
		}
	} else {
		x.writeIdx, x.recvIdx = 1, 1
	}
	l.pump()
}

// pump issues the next receive and flash write the buffers allow.
func (l *Loader) pump() {
	x := &l.xfer
	if l.state != StateTransfer {
		return
	}
	if !l.recvBusy && x.toRecv > 0 && x.full < NumBuffers {
		l.recvData()
	}
	if !l.writeBusy && x.toWrite > 0 && x.full > 0 {
		l.writeData()
	}
	l.observe()
}

func (l *Loader) recvData() {
	buf := &l.bufs[l.xfer.recvIdx]
	buf.n = 0
	epoch := l.epoch
	l.recvBusy = true
	l.xfer.recvCycles++
	err := l.cfg.Transport.Recv(buf.data[:], func(status transport.Status, ch int, data []byte) {
		l.recvBusy = false
		if epoch != l.epoch || l.state != StateTransfer {
			l.kick()
			return
		}
		l.dataReceived(status, ch, len(data))
	})
	if err != nil {
		l.recvBusy = false
		glog.Errorf("loader: receive: %v", err)
		l.transportError(transport.StatusClosed)
	}
}

func (l *Loader) dataReceived(status transport.Status, ch, n int) {
	x := &l.xfer
	if status == transport.StatusOK && ch != l.cfg.Channel {
		status = transport.StatusChannelError
	}
	if status != transport.StatusOK {
		l.transportError(status)
		l.observe()
		return
	}
	if n > 0 {
		l.bufs[x.recvIdx].n = n
		x.received += n
		if x.full++; x.full > x.maxFull {
			x.maxFull = x.full
		}
		if x.toRecv -= n; x.toRecv < 0 {
			x.toRecv = 0
		}
		x.recvIdx ^= 1
	}
	l.pump()
}

func (l *Loader) writeData() {
	x := &l.xfer
	buf := &l.bufs[x.writeIdx]
	n := buf.n
	if n > x.toWrite {
		n = x.toWrite
	}
	epoch := l.epoch
	l.writeBusy = true
	x.writeCycles++
	err := l.cfg.Flash.ProgramAsync(l.cfg.Sched, x.addr, buf.data[:n], func(written int, err error) {
		l.writeBusy = false
		if epoch != l.epoch || l.state != StateTransfer {
			l.kick()
			return
		}
		l.dataWritten(written, err)
	})
	if err != nil {
		l.writeBusy = false
		l.flashError(err)
	}
}

func (l *Loader) flashError(err error) {
	x := &l.xfer
	glog.Errorf("loader: program failed: %v", err)
	l.state = StateHalted
	l.cfg.Display.Message(ui.LevelError, fmt.Sprintf("PROGRAM FAILED AT 0x%06X: %v", x.addr, err))
	l.observe()
}

func (l *Loader) dataWritten(n int, err error) {
	x := &l.xfer
	if err != nil {
		x.written += n
		x.addr += uint32(n)
		l.flashError(err)
		return
	}
	x.toWrite -= n
	x.written += n
	x.addr += uint32(n)
	l.cfg.Display.Progress(x.written, int(x.length))
	buf := &l.bufs[x.writeIdx]
	if x.toWrite == 0 {
		l.finishTransfer(buf.data[n:buf.n])
		return
	}
	x.full--
	x.writeIdx ^= 1
	l.pump()
}

// finishTransfer completes the transfer. rest holds bytes received after
// the image, the start of the next command.
func (l *Loader) finishTransfer(rest []byte) {
	x := &l.xfer
	x.full = 0
	glog.Infof("loader: programmed %d bytes", x.written)
	l.cfg.Display.Message(ui.LevelInfo, "PROGRAM DONE")
	l.observe()
	l.state = StateCommand
	l.cmdLen = copy(l.bufs[0].data[:], rest)
	l.process()
}
