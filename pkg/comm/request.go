package comm

import (
	"encoding/binary"
)

// Request is a decoded request frame.
type Request interface {
	Command() Cmd
	Frame() Frame
}

// Range is a memory range on the chip.
type Range struct {
	Addr uint32
	Len  uint32
}

// Check verifies the range lies within a chip of chipLen bytes.
func (r Range) Check(chipLen uint32) error {
	if uint64(r.Addr)+uint64(r.Len) > uint64(chipLen) {
		return ErrOutOfRange
	}
	return nil
}

func (r Range) bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b, r.Addr)
	binary.BigEndian.PutUint32(b[4:], r.Len)
	return b
}

func parseRange(b []byte) Range {
	return Range{
		Addr: binary.BigEndian.Uint32(b),
		Len:  binary.BigEndian.Uint32(b[4:]),
	}
}

// VersionGet queries the bootloader version.
type VersionGet struct{}

// Echo asks for Data to be sent back.
type Echo struct{ Data []byte }

// IDGet queries the flash chip identification.
type IDGet struct{}

// Erase erases the sectors covering a range.
type Erase struct{ Range }

// Program streams Range.Len bytes to be written at Range.Addr.
type Program struct{ Range }

// Read reads a range back.
type Read struct{ Range }

// Run transfers control to Addr.
type Run struct{ Addr uint32 }

// Autorun transfers control to the cartridge entry point.
type Autorun struct{}

// BootAddrGet queries the address of the bootloader.
type BootAddrGet struct{}

// Command implements Request.
func (VersionGet) Command() Cmd { return CmdVersionGet }

// Command implements Request.
func (Echo) Command() Cmd { return CmdEcho }

// Command implements Request.
func (IDGet) Command() Cmd { return CmdIDGet }

// Command implements Request.
func (Erase) Command() Cmd { return CmdErase }

// Command implements Request.
func (Program) Command() Cmd { return CmdProgram }

// Command implements Request.
func (Read) Command() Cmd { return CmdRead }

// Command implements Request.
func (Run) Command() Cmd { return CmdRun }

// Command implements Request.
func (Autorun) Command() Cmd { return CmdAutorun }

// Command implements Request.
func (BootAddrGet) Command() Cmd { return CmdBootAddrGet }

// Frame implements Request.
func (r VersionGet) Frame() Frame { return Frame{Cmd: r.Command()} }

// Frame implements Request.
func (r Echo) Frame() Frame { return Frame{Cmd: r.Command(), Data: r.Data} }

// Frame implements Request.
func (r IDGet) Frame() Frame { return Frame{Cmd: r.Command()} }

// Frame implements Request.
func (r Erase) Frame() Frame { return Frame{Cmd: r.Command(), Data: r.bytes()} }

// Frame implements Request.
func (r Program) Frame() Frame { return Frame{Cmd: r.Command(), Data: r.bytes()} }

// Frame implements Request.
func (r Read) Frame() Frame { return Frame{Cmd: r.Command(), Data: r.bytes()} }

// Frame implements Request.
func (r Run) Frame() Frame {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, r.Addr)
	return Frame{Cmd: r.Command(), Data: b}
}

// Frame implements Request.
func (r Autorun) Frame() Frame { return Frame{Cmd: r.Command()} }

// Frame implements Request.
func (r BootAddrGet) Frame() Frame { return Frame{Cmd: r.Command()} }

// payload lengths accepted per command, -1 for any.
var requestLens = [...]int{
	CmdVersionGet:  0,
	CmdEcho:        -1,
	CmdIDGet:       0,
	CmdErase:       8,
	CmdProgram:     8,
	CmdRead:        8,
	CmdRun:         4,
	CmdAutorun:     0,
	CmdBootAddrGet: 0,
}

// ParseRequest validates the payload length of f for its command and
// decodes it.
func ParseRequest(f Frame) (Request, error) {
	if int(f.Cmd) >= len(requestLens) {
		return nil, ErrUnknownCommand
	}
	if want := requestLens[f.Cmd]; want >= 0 && len(f.Data) != want {
		return nil, &LengthError{Cmd: f.Cmd, Declared: len(f.Data), Expected: want}
	}
	switch f.Cmd {
	case CmdVersionGet:
		return VersionGet{}, nil
	case CmdEcho:
		return Echo{Data: f.Data}, nil
	case CmdIDGet:
		return IDGet{}, nil
	case CmdErase:
		return Erase{parseRange(f.Data)}, nil
	case CmdProgram:
		return Program{parseRange(f.Data)}, nil
	case CmdRead:
		return Read{parseRange(f.Data)}, nil
	case CmdRun:
		return Run{Addr: binary.BigEndian.Uint32(f.Data)}, nil
	case CmdAutorun:
		return Autorun{}, nil
	default:
		return BootAddrGet{}, nil
	}
}
