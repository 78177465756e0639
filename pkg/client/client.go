// Package client talks to the bootloader from the host.
package client

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/mwboot/pkg/comm"
)

// DefaultTimeout bounds each request and each write of an image on
// connections supporting deadlines.
const DefaultTimeout = 10 * time.Second

// CommandError is returned when the bootloader replies ERROR.
type CommandError struct {
	Cmd comm.Cmd
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s rejected", e.Cmd)
}

// ReplyError is returned when a reply is neither OK nor ERROR or carries
// an unexpected payload.
type ReplyError struct {
	Cmd   comm.Cmd
	Reply comm.Frame
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: unexpected reply %s with %d bytes", e.Cmd, e.Reply.Cmd, len(e.Reply.Data))
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// Version is the protocol version reported by the bootloader.
type Version struct {
	Major, Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ID is the flash identification reported by ID_GET.
type ID struct {
	Manufacturer byte
	Device       [3]byte
}

func (id ID) String() string {
	return fmt.Sprintf("%02X:%02X%02X%02X", id.Manufacturer, id.Device[0], id.Device[1], id.Device[2])
}

// ProgressFunc reports the number of bytes sent.
type ProgressFunc func(sent, total int)

// Client issues requests one at a time. It is not safe for concurrent use.
type Client struct {
	// Timeout applies if the connection supports deadlines. Zero
	// disables it.
	Timeout time.Duration
	// ChunkSize is the size of writes streaming a PROGRAM image.
	ChunkSize int

	rw io.ReadWriter
}

// New creates a Client on rw.
func New(rw io.ReadWriter) *Client {
	return &Client{Timeout: DefaultTimeout, ChunkSize: comm.MaxFrameLen, rw: rw}
}

// Close closes the connection if it is an io.Closer.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Do sends req and waits for the reply. An ERROR reply is returned as
// *CommandError.
func (c *Client) Do(req comm.Request) (comm.Frame, error) {
	cmd := req.Command()
	glog.V(2).Infof("client: %s", cmd)
	c.arm()
	defer c.disarm()
	if _, err := req.Frame().WriteTo(c.rw); err != nil {
		return comm.Frame{}, errors.Wrapf(err, "send %s", cmd)
	}
	return c.reply(cmd)
}

func (c *Client) arm() {
	if d, ok := c.rw.(deadliner); ok && c.Timeout > 0 {
		d.SetDeadline(time.Now().Add(c.Timeout))
	}
}

func (c *Client) disarm() {
	if d, ok := c.rw.(deadliner); ok && c.Timeout > 0 {
		d.SetDeadline(time.Time{})
	}
}

func (c *Client) reply(cmd comm.Cmd) (comm.Frame, error) {
	f, err := comm.ReadFrame(c.rw)
	if err != nil {
		return f, errors.Wrapf(err, "receive %s reply", cmd)
	}
	switch f.Cmd {
	case comm.CmdOK:
		return f, nil
	case comm.CmdError:
		return f, &CommandError{Cmd: cmd}
	}
	return f, &ReplyError{Cmd: cmd, Reply: f}
}

func (c *Client) expect(req comm.Request, length int) ([]byte, error) {
	f, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if length >= 0 && len(f.Data) != length {
		return nil, &ReplyError{Cmd: req.Command(), Reply: f}
	}
	return f.Data, nil
}

// Version queries the protocol version.
func (c *Client) Version() (v Version, err error) {
	b, err := c.expect(comm.VersionGet{}, 2)
	if err == nil {
		v.Major, v.Minor = int(b[0]), int(b[1])
	}
	return
}

// Echo sends data and returns what the bootloader echoed.
func (c *Client) Echo(data []byte) ([]byte, error) {
	if len(data) > comm.MaxPayload {
		return nil, errors.Errorf("echo: %d bytes exceed %d", len(data), comm.MaxPayload)
	}
	return c.expect(comm.Echo{Data: data}, len(data))
}

// ID reads the flash identification.
func (c *Client) ID() (id ID, err error) {
	b, err := c.expect(comm.IDGet{}, 4)
	if err == nil {
		id.Manufacturer = b[0]
		copy(id.Device[:], b[1:])
	}
	return
}

// Erase erases the sectors covering [addr, addr+length).
func (c *Client) Erase(addr, length uint32) error {
	_, err := c.expect(comm.Erase{Range: comm.Range{Addr: addr, Len: length}}, 0)
	return err
}

// Program writes data at addr. The image streams right after the
// PROGRAM reply. A VERSION_GET round trip afterwards confirms the
// bootloader consumed the image and listens for commands again.
func (c *Client) Program(addr uint32, data []byte, progress ProgressFunc) error {
	if _, err := c.expect(comm.Program{Range: comm.Range{Addr: addr, Len: uint32(len(data))}}, 0); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	chunk := c.ChunkSize
	if chunk <= 0 {
		chunk = comm.MaxFrameLen
	}
	for sent := 0; sent < len(data); {
		n := len(data) - sent
		if n > chunk {
			n = chunk
		}
		c.arm()
		_, err := c.rw.Write(data[sent : sent+n])
		c.disarm()
		if err != nil {
			return errors.Wrapf(err, "stream image at 0x%06X", addr+uint32(sent))
		}
		sent += n
		if progress != nil {
			progress(sent, len(data))
		}
	}
	_, err := c.Version()
	return errors.Wrap(err, "program not confirmed")
}

// Run starts the program at addr.
func (c *Client) Run(addr uint32) error {
	_, err := c.expect(comm.Run{Addr: addr}, 0)
	return err
}

// Autorun starts the program at the cartridge entry point.
func (c *Client) Autorun() error {
	_, err := c.expect(comm.Autorun{}, 0)
	return err
}

// BootAddr queries the start of the bootloader sectors.
func (c *Client) BootAddr() (uint32, error) {
	b, err := c.expect(comm.BootAddrGet{}, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
