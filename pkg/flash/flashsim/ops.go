package flashsim

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/robotalks/mwboot/pkg/flash"
)

// OpKind classifies recorded chip operations.
type OpKind int

// Recorded operations.
const (
	OpProgram OpKind = iota
	OpWriteBuffer
	OpSectorErase
	OpChipErase
	OpAbort
)

func (k OpKind) String() string {
	switch k {
	case OpProgram:
		return "program"
	case OpWriteBuffer:
		return "write-buffer"
	case OpSectorErase:
		return "sector-erase"
	case OpChipErase:
		return "chip-erase"
	case OpAbort:
		return "abort"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is an operation the chip accepted.
type Op struct {
	Kind  OpKind
	Addr  uint32
	Words int
}

func (o Op) String() string {
	return fmt.Sprintf("%s 0x%06X/%d", o.Kind, o.Addr, o.Words)
}

// Ops returns the operations accepted so far.
func (c *Chip) Ops() []Op {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Op(nil), c.ops...)
}

// ClearOps discards recorded operations.
func (c *Chip) ClearOps() {
	c.lock.Lock()
	c.ops = nil
	c.lock.Unlock()
}

// FailProgram makes any program operation touching the word at addr fail.
func (c *Chip) FailProgram(addr uint32) {
	c.lock.Lock()
	c.programFaults[addr&^1] = true
	c.lock.Unlock()
}

// FailErase makes erasing the sector containing addr fail.
func (c *Chip) FailErase(addr uint32) {
	c.lock.Lock()
	c.eraseFaults[flash.SectorIndex(addr)] = true
	c.lock.Unlock()
}

// ClearFaults removes injected faults.
func (c *Chip) ClearFaults() {
	c.lock.Lock()
	c.programFaults = make(map[uint32]bool)
	c.eraseFaults = make(map[int]bool)
	c.lock.Unlock()
}

// Mode returns the name of the current command state, "read" being
// read-array mode.
func (c *Chip) Mode() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state.String()
}

// ReadArray indicates the chip is in read-array mode.
func (c *Chip) ReadArray() bool {
	return c.Mode() == stRead.String()
}

// Bytes returns a copy of the array content, bypassing the command state.
func (c *Chip) Bytes(addr, length uint32) []byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]byte(nil), c.mem[addr:addr+length]...)
}

// Fill stores data at addr directly, bypassing the command state.
func (c *Chip) Fill(addr uint32, data []byte) {
	c.lock.Lock()
	copy(c.mem[addr:], data)
	c.lock.Unlock()
}

// Load replaces the array content from r. A short image leaves the rest erased.
func (c *Chip) Load(r io.Reader) error {
	data, err := ioutil.ReadAll(io.LimitReader(r, flash.ChipLength))
	if err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	n := copy(c.mem, data)
	for i := n; i < len(c.mem); i++ {
		c.mem[i] = 0xFF
	}
	return nil
}

// Save writes the array content to w.
func (c *Chip) Save(w io.Writer) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, err := w.Write(c.mem)
	return err
}

// LoadFile loads the array from the image at path. A missing file leaves the
// chip erased.
func (c *Chip) LoadFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Load(f)
}

// SaveFile writes the array to the image at path.
func (c *Chip) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = c.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
