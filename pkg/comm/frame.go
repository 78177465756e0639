package comm

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame limits.
const (
	HeaderLen   = 4
	MaxFrameLen = 1440
	MaxPayload  = MaxFrameLen - HeaderLen
)

// Cmd is the command code of a frame.
type Cmd uint16

// Request commands.
const (
	CmdVersionGet Cmd = iota
	CmdEcho
	CmdIDGet
	CmdErase
	CmdProgram
	CmdRead
	CmdRun
	CmdAutorun
	CmdBootAddrGet
	// NumCmds is the number of request commands.
	NumCmds int = iota
)

// Reply commands.
const (
	CmdOK    Cmd = 0
	CmdError Cmd = 1
)

var cmdNames = [...]string{
	"VERSION_GET",
	"ECHO",
	"ID_GET",
	"ERASE",
	"PROGRAM",
	"READ",
	"RUN",
	"AUTORUN",
	"BOOTLOADER_ADDR_GET",
}

func (c Cmd) String() string {
	if int(c) < len(cmdNames) {
		return cmdNames[c]
	}
	return fmt.Sprintf("CMD(%d)", uint16(c))
}

// Frame is the unit exchanged with the peer.
type Frame struct {
	Cmd  Cmd
	Data []byte
}

// Header encodes the frame header.
func (f Frame) Header() [HeaderLen]byte {
	var h [HeaderLen]byte
	binary.BigEndian.PutUint16(h[0:], uint16(f.Cmd))
	binary.BigEndian.PutUint16(h[2:], uint16(len(f.Data)))
	return h
}

// Bytes returns encoded bytes for sending.
func (f Frame) Bytes() []byte {
	h := f.Header()
	b := make([]byte, HeaderLen+len(f.Data))
	copy(b, h[:])
	copy(b[HeaderLen:], f.Data)
	return b
}

// WriteTo writes encoded bytes.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// ParseHeader decodes the header at the start of b.
func ParseHeader(b []byte) (cmd Cmd, length int, err error) {
	if len(b) < HeaderLen {
		return 0, 0, ErrShortFrame
	}
	cmd = Cmd(binary.BigEndian.Uint16(b))
	length = int(binary.BigEndian.Uint16(b[2:]))
	if length > MaxPayload {
		err = &LengthError{Cmd: cmd, Declared: length, Expected: MaxPayload}
	}
	return
}

// ParseFrame decodes the frame at the start of b and returns the bytes
// following it. Data aliases b. It returns ErrShortFrame while b does not
// hold the complete frame.
func ParseFrame(b []byte) (f Frame, rest []byte, err error) {
	cmd, length, err := ParseHeader(b)
	if err != nil {
		return
	}
	if len(b) < HeaderLen+length {
		err = ErrShortFrame
		return
	}
	f.Cmd, f.Data = cmd, b[HeaderLen:HeaderLen+length]
	rest = b[HeaderLen+length:]
	return
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (f Frame, err error) {
	var h [HeaderLen]byte
	if _, err = io.ReadFull(r, h[:]); err != nil {
		return
	}
	cmd, length, err := ParseHeader(h[:])
	if err != nil {
		return
	}
	f.Cmd, f.Data = cmd, make([]byte, length)
	_, err = io.ReadFull(r, f.Data)
	return
}

// OK creates an OK reply carrying data.
func OK(data []byte) Frame {
	return Frame{Cmd: CmdOK, Data: data}
}

// Error creates an ERROR reply.
func Error() Frame {
	return Frame{Cmd: CmdError}
}
