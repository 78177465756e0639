// Package flashsim emulates the command state machine of the cartridge
// flash chip behind flash.Bus.
package flashsim

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/flash"
)

// Default busy durations, counted in status reads.
const (
	DefaultProgramReads    = 2
	DefaultEraseStartReads = 1
	DefaultEraseReads      = 4
)

// DefaultID is the autoselect identification of an S29GL032 top boot part.
var DefaultID = flash.ID{
	Manufacturer: 0x0001,
	Device:       [3]uint16{0x227E, 0x221A, 0x2201},
}

type state int

const (
	stRead state = iota
	stUnlock1
	stUnlocked
	stAutoselect
	stProgram
	stBufferCount
	stBufferData
	stBufferCommit
	stEraseSetup
	stEraseUnlock1
	stEraseUnlocked
	stBusyProgram
	stBusyErase
	stFailed
	stAbort
	stAbortUnlock1
	stAbortUnlocked
)

var stateNames = map[state]string{
	stRead:          "read",
	stUnlock1:       "unlock1",
	stUnlocked:      "unlocked",
	stAutoselect:    "autoselect",
	stProgram:       "program",
	stBufferCount:   "buffer-count",
	stBufferData:    "buffer-data",
	stBufferCommit:  "buffer-commit",
	stEraseSetup:    "erase-setup",
	stEraseUnlock1:  "erase-unlock1",
	stEraseUnlocked: "erase-unlocked",
	stBusyProgram:   "busy-program",
	stBusyErase:     "busy-erase",
	stFailed:        "failed",
	stAbort:         "abort",
	stAbortUnlock1:  "abort-unlock1",
	stAbortUnlocked: "abort-unlocked",
}

func (s state) String() string {
	return stateNames[s]
}

type pending struct {
	addr  uint32
	words []uint16
}

// Chip is an emulated flash chip. The zero value is not usable, use New.
type Chip struct {
	// ID is reported in autoselect mode.
	ID flash.ID
	// ProgramReads is the number of status reads a program operation stays busy.
	ProgramReads int
	// EraseStartReads is the number of status reads before DQ3 goes high.
	EraseStartReads int
	// EraseReads is the number of status reads an erase stays busy after start.
	EraseReads int

	lock  sync.Mutex
	mem   []byte
	state state

	// command in progress.
	sector  int
	count   int
	prog    []pending
	status  uint16
	target  uint16
	reads   int
	failing bool
	erase   []int
	toggle  uint16

	programFaults map[uint32]bool
	eraseFaults   map[int]bool

	ops []Op
}

// New creates an erased Chip.
func New() *Chip {
	c := &Chip{
		ID:              DefaultID,
		ProgramReads:    DefaultProgramReads,
		EraseStartReads: DefaultEraseStartReads,
		EraseReads:      DefaultEraseReads,
		mem:             make([]byte, flash.ChipLength),
		programFaults:   make(map[uint32]bool),
		eraseFaults:     make(map[int]bool),
	}
	for i := range c.mem {
		c.mem[i] = 0xFF
	}
	return c
}

func commandOffset(addr uint32) uint32 {
	return (addr >> 1) & 0xFFF
}

// ReadWord implements flash.Bus.
func (c *Chip) ReadWord(addr uint32) uint16 {
	c.lock.Lock()
	defer c.lock.Unlock()
	addr = (addr &^ 1) % flash.ChipLength
	switch c.state {
	case stAutoselect:
		switch addr >> 1 {
		case flash.AutoselectManufacturer:
			return c.ID.Manufacturer
		case flash.AutoselectDevice1:
			return c.ID.Device[0]
		case flash.AutoselectDevice2:
			return c.ID.Device[1]
		case flash.AutoselectDevice3:
			return c.ID.Device[2]
		}
		return 0
	case stBusyProgram:
		return c.readBusyProgram()
	case stBusyErase:
		return c.readBusyErase()
	case stFailed:
		c.toggle ^= flash.DQ6
		return c.status | c.toggle
	case stAbort, stAbortUnlock1, stAbortUnlocked:
		c.toggle ^= flash.DQ6
		return (^c.target & flash.DQ7) | flash.DQ1 | c.toggle
	}
	return c.word(addr)
}

func (c *Chip) word(addr uint32) uint16 {
	return uint16(c.mem[addr])<<8 | uint16(c.mem[addr+1])
}

func (c *Chip) readBusyProgram() uint16 {
	c.toggle ^= flash.DQ6
	status := (^c.target & flash.DQ7) | c.toggle
	if c.reads--; c.reads > 0 {
		return status
	}
	if c.failing {
		glog.V(3).Infof("flashsim: program failure injected")
		c.status = (^c.target & flash.DQ7) | flash.DQ5
		c.state = stFailed
		c.prog = nil
		return status | flash.DQ5
	}
	for _, p := range c.prog {
		for i, w := range p.words {
			a := p.addr + uint32(i)*2
			c.mem[a] &= byte(w >> 8)
			c.mem[a+1] &= byte(w)
		}
	}
	c.prog = nil
	c.state = stRead
	return status
}

func (c *Chip) readBusyErase() uint16 {
	c.toggle ^= flash.DQ6
	if c.reads > c.EraseReads {
		c.reads--
		return c.toggle
	}
	status := flash.DQ3 | c.toggle
	if c.reads--; c.reads > 0 {
		return status
	}
	if c.failing {
		glog.V(3).Infof("flashsim: erase failure injected")
		c.status = flash.DQ3 | flash.DQ5
		c.state = stFailed
		c.erase = nil
		return status | flash.DQ5
	}
	for _, n := range c.erase {
		start := flash.SectorAddr(n)
		end := start + flash.SectorLen(n)
		for a := start; a < end; a++ {
			c.mem[a] = 0xFF
		}
	}
	c.erase = nil
	c.state = stRead
	return status
}

// WriteWord implements flash.Bus.
func (c *Chip) WriteWord(addr uint32, v uint16) {
	c.lock.Lock()
	defer c.lock.Unlock()
	addr = (addr &^ 1) % flash.ChipLength
	off := commandOffset(addr)
	data := v & 0xFF
	switch c.state {
	case stBusyProgram, stBusyErase:
		// ignored while the embedded operation runs.
	case stRead, stAutoselect, stFailed:
		if data == flash.CmdReset {
			c.state = stRead
		} else if off == flash.UnlockAddr1 && data == flash.CmdUnlock1 {
			c.state = stUnlock1
		}
	case stUnlock1:
		c.expect(off == flash.UnlockAddr2 && data == flash.CmdUnlock2, stUnlocked)
	case stUnlocked:
		c.command(addr, off, data)
	case stProgram:
		c.ops = append(c.ops, Op{Kind: OpProgram, Addr: addr, Words: 1})
		c.startProgram([]pending{{addr: addr, words: []uint16{v}}}, v)
	case stBufferCount:
		if flash.SectorIndex(addr) != c.sector || int(v) >= flash.BufferWords {
			c.abort()
			return
		}
		c.count = int(v) + 1
		c.prog = c.prog[:0]
		c.state = stBufferData
	case stBufferData:
		c.bufferData(addr, v)
	case stBufferCommit:
		if flash.SectorIndex(addr) != c.sector || data != flash.CmdBufferCommit {
			c.abort()
			return
		}
		words := c.prog[0].words
		c.ops = append(c.ops, Op{Kind: OpWriteBuffer, Addr: c.prog[0].addr, Words: len(words)})
		c.startProgram(c.prog, words[len(words)-1])
	case stEraseSetup:
		c.expect(off == flash.UnlockAddr1 && data == flash.CmdUnlock1, stEraseUnlock1)
	case stEraseUnlock1:
		c.expect(off == flash.UnlockAddr2 && data == flash.CmdUnlock2, stEraseUnlocked)
	case stEraseUnlocked:
		switch {
		case off == flash.UnlockAddr1 && data == flash.CmdChipErase:
			sectors := make([]int, flash.SectorCount())
			for n := range sectors {
				sectors[n] = n
			}
			c.ops = append(c.ops, Op{Kind: OpChipErase})
			c.startErase(sectors)
		case data == flash.CmdSectorErase:
			n := flash.SectorIndex(addr)
			c.ops = append(c.ops, Op{Kind: OpSectorErase, Addr: flash.SectorAddr(n)})
			c.startErase([]int{n})
		default:
			c.state = stRead
		}
	case stAbort:
		c.expect(off == flash.UnlockAddr1 && data == flash.CmdUnlock1, stAbortUnlock1)
	case stAbortUnlock1:
		c.expect(off == flash.UnlockAddr2 && data == flash.CmdUnlock2, stAbortUnlocked)
	case stAbortUnlocked:
		if off == flash.UnlockAddr1 && data == flash.CmdReset {
			c.state = stRead
		} else {
			c.state = stAbort
		}
	}
}

// expect moves to next when ok, otherwise falls back to the mode the
// sequence started from.
func (c *Chip) expect(ok bool, next state) {
	if ok {
		c.state = next
		return
	}
	switch c.state {
	case stAbort, stAbortUnlock1, stAbortUnlocked:
		c.state = stAbort
	default:
		c.state = stRead
	}
}

func (c *Chip) command(addr, off uint32, data uint16) {
	switch {
	case data == flash.CmdWriteBuffer:
		c.sector = flash.SectorIndex(addr)
		c.state = stBufferCount
	case off != flash.UnlockAddr1:
		c.state = stRead
	case data == flash.CmdAutoselect:
		c.state = stAutoselect
	case data == flash.CmdProgram:
		c.state = stProgram
	case data == flash.CmdEraseSetup:
		c.state = stEraseSetup
	default:
		c.state = stRead
	}
}

func (c *Chip) bufferData(addr uint32, v uint16) {
	if len(c.prog) == 0 {
		c.prog = append(c.prog, pending{addr: addr})
	}
	p := &c.prog[0]
	page := p.addr &^ (flash.BufferBytes - 1)
	if addr&^(flash.BufferBytes-1) != page || addr != p.addr+uint32(len(p.words))*2 {
		c.target = v
		c.abort()
		return
	}
	p.words = append(p.words, v)
	c.target = v
	if len(p.words) == c.count {
		c.state = stBufferCommit
	}
}

func (c *Chip) abort() {
	glog.V(3).Infof("flashsim: write buffer abort")
	c.ops = append(c.ops, Op{Kind: OpAbort})
	c.prog = nil
	c.state = stAbort
}

func (c *Chip) startProgram(prog []pending, last uint16) {
	c.failing = false
	for _, p := range prog {
		for i := range p.words {
			if c.programFaults[p.addr+uint32(i)*2] {
				c.failing = true
			}
		}
	}
	c.prog = prog
	c.target = last
	c.reads = c.ProgramReads
	if c.reads < 1 {
		c.reads = 1
	}
	c.state = stBusyProgram
}

func (c *Chip) startErase(sectors []int) {
	c.failing = false
	for _, n := range sectors {
		if c.eraseFaults[n] {
			c.failing = true
		}
	}
	c.erase = sectors
	reads := c.EraseReads
	if reads < 1 {
		reads = 1
	}
	c.reads = reads + c.EraseStartReads
	c.state = stBusyErase
}
