// Package loader serves the bootloader protocol: it receives command
// frames from the transport, dispatches them and streams PROGRAM images
// into flash through a pair of buffers, so reception and flash writes
// overlap.
package loader

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/comm"
	"github.com/robotalks/mwboot/pkg/flash"
	"github.com/robotalks/mwboot/pkg/framework"
	"github.com/robotalks/mwboot/pkg/transport"
	"github.com/robotalks/mwboot/pkg/ui"
)

// Version of the bootloader protocol.
const (
	VersionMajor = 1
	VersionMinor = 0
)

// EntryPoint is where AUTORUN starts the flashed program: the first byte
// after the cartridge header.
const EntryPoint uint32 = 0x000200

// HandoffFrames is the number of frames waited between the RUN reply and
// the handoff, letting the transport flush the reply.
const HandoffFrames = 2

// NumBuffers is the number of data buffers of a transfer.
const NumBuffers = 2

// Flash is the flash driver used by the loader.
type Flash interface {
	ReadID() (flash.ID, error)
	RangeEraseProgress(addr, length uint32, progress func(done, total int)) error
	ProgramAsync(sched flash.TaskScheduler, addr uint32, data []byte, done flash.DoneFunc) error
}

// Config wires a Loader.
type Config struct {
	Sched     *framework.Scheduler
	Flash     Flash
	Transport transport.Transport
	Display   ui.Display
	// Channel is the transport channel commands are accepted on.
	Channel int
	// ChipLength bounds every memory range.
	ChipLength uint32
	// BootAddr is reported by BOOTLOADER_ADDR_GET.
	BootAddr uint32
	// ProtectBootloader rejects ERASE and PROGRAM ranges overlapping
	// [BootAddr, ChipLength).
	ProtectBootloader bool
	// Handoff is called to give up control to the program at addr.
	// It defaults to ending the scheduler.
	Handoff func(addr uint32)
	// Observer, if set, receives a snapshot after every pipeline step.
	Observer func(Stats)
}

// State is the state of the loader.
type State int

// States.
const (
	StateIdle State = iota
	StateCommand
	StateTransfer
	StateHalted
	StateAborted
	StateHandoff
)

var stateNames = [...]string{"idle", "command", "transfer", "halted", "aborted", "handoff"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type buffer struct {
	data [comm.MaxFrameLen]byte
	n    int
}

// transfer is the state of a PROGRAM transfer. toRecv and toWrite are -1
// once the transfer is abandoned.
type transfer struct {
	addr     uint32
	length   uint32
	toRecv   int
	toWrite  int
	received int
	written  int
	full     int
	maxFull  int
	recvIdx  int
	writeIdx int

	recvCycles  int
	writeCycles int
}

// Loader is the command and transfer engine. All methods must be called
// on the scheduler goroutine.
type Loader struct {
	cfg      Config
	handlers [comm.NumCmds]handlerFunc

	state State
	epoch int

	bufs   [NumBuffers]buffer
	cmdLen int
	reply  [comm.MaxFrameLen]byte
	xfer   transfer

	recvBusy  bool
	writeBusy bool
	sendBusy  bool

	listenWanted    bool
	dispatchPending bool
	// rejected holds an ERROR reply owed for data on a foreign channel.
	rejected bool
}

// New creates a Loader.
func New(cfg Config) *Loader {
	if cfg.Display == nil {
		cfg.Display = ui.Discard
	}
	if cfg.Channel == 0 {
		cfg.Channel = transport.DefaultChannel
	}
	if cfg.ChipLength == 0 {
		cfg.ChipLength = flash.ChipLength
	}
	if cfg.BootAddr == 0 {
		cfg.BootAddr = flash.BootloaderAddr
	}
	l := &Loader{cfg: cfg}
	if l.cfg.Handoff == nil {
		l.cfg.Handoff = func(uint32) { cfg.Sched.End(0) }
	}
	l.handlers = [comm.NumCmds]handlerFunc{
		comm.CmdVersionGet:  (*Loader).versionGet,
		comm.CmdEcho:        (*Loader).echo,
		comm.CmdIDGet:       (*Loader).idGet,
		comm.CmdErase:       (*Loader).erase,
		comm.CmdProgram:     (*Loader).program,
		comm.CmdRead:        (*Loader).read,
		comm.CmdRun:         (*Loader).run,
		comm.CmdAutorun:     (*Loader).autorun,
		comm.CmdBootAddrGet: (*Loader).bootAddrGet,
	}
	return l
}

// Start begins listening for commands.
func (l *Loader) Start() {
	glog.Infof("loader: v%d.%d started", VersionMajor, VersionMinor)
	l.listen()
}

// Restart abandons whatever is in progress and listens for commands
// again once no receive or flash write is in flight. It is called when
// the transport gets a new client.
func (l *Loader) Restart() {
	if l.state == StateHandoff || (l.state == StateCommand && l.cmdLen == 0 && !l.dispatchPending && !l.rejected && !l.listenWanted) {
		return
	}
	if l.state == StateTransfer {
		glog.Warningf("loader: transfer abandoned at 0x%06X", l.xfer.addr)
		l.xfer.toRecv, l.xfer.toWrite = -1, -1
	}
	glog.V(1).Info("loader: restart")
	l.epoch++
	l.dispatchPending, l.rejected = false, false
	l.listen()
}

// State returns the current state.
func (l *Loader) State() State {
	return l.state
}

// Stats is a snapshot of the loader.
type Stats struct {
	State     State
	Addr      uint32
	Length    uint32
	ToReceive int
	ToWrite   int
	Received  int
	Written   int
	Full      int
	MaxFull   int
	Receiving bool
	Writing   bool
	Sending   bool

	ReceiveCycles int
	WriteCycles   int
}

// Stats returns a snapshot of the loader.
func (l *Loader) Stats() Stats {
	x := &l.xfer
	return Stats{
		State:         l.state,
		Addr:          x.addr,
		Length:        x.length,
		ToReceive:     x.toRecv,
		ToWrite:       x.toWrite,
		Received:      x.received,
		Written:       x.written,
		Full:          x.full,
		MaxFull:       x.maxFull,
		Receiving:     l.recvBusy,
		Writing:       l.writeBusy,
		Sending:       l.sendBusy,
		ReceiveCycles: x.recvCycles,
		WriteCycles:   x.writeCycles,
	}
}

func (l *Loader) observe() {
	if l.cfg.Observer != nil {
		l.cfg.Observer(l.Stats())
	}
}

// transportError abandons the current transfer.
func (l *Loader) transportError(status transport.Status) {
	glog.Warningf("loader: transport %s in state %s", status, l.state)
	switch l.state {
	case StateTransfer:
		l.xfer.toRecv, l.xfer.toWrite = -1, -1
		l.state = StateAborted
		l.cfg.Display.Message(ui.LevelError, fmt.Sprintf("TRANSFER ABORTED: %s", status))
	case StateCommand:
		l.cfg.Display.Message(ui.LevelWarning, fmt.Sprintf("CONNECTION LOST: %s", status))
		l.listen()
	case StateIdle:
		l.cfg.Display.Message(ui.LevelWarning, fmt.Sprintf("CONNECTION LOST: %s", status))
	}
}
