package flash

import (
	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/framework"
)

// Driver issues command sequences to the chip behind a Bus.
// A Driver is not safe for concurrent use.
type Driver struct {
	bus   Bus
	async *asyncProgram
	task  *framework.Task
}

// New creates a Driver on bus.
func New(bus Bus) *Driver {
	return &Driver{bus: bus}
}

func (d *Driver) cmd(offset uint32, v uint16) {
	d.bus.WriteWord(WordAddr(offset), v)
}

func (d *Driver) unlock() {
	d.cmd(UnlockAddr1, CmdUnlock1)
	d.cmd(UnlockAddr2, CmdUnlock2)
}

// Reset returns the chip to read-array mode.
func (d *Driver) Reset() {
	d.bus.WriteWord(0, CmdReset)
}

func (d *Driver) abortReset() {
	d.unlock()
	d.cmd(UnlockAddr1, CmdReset)
}

// ReadID reads the manufacturer and device identification.
func (d *Driver) ReadID() (id ID, err error) {
	d.unlock()
	d.cmd(UnlockAddr1, CmdAutoselect)
	id.Manufacturer = d.bus.ReadWord(WordAddr(AutoselectManufacturer))
	id.Device[0] = d.bus.ReadWord(WordAddr(AutoselectDevice1))
	id.Device[1] = d.bus.ReadWord(WordAddr(AutoselectDevice2))
	id.Device[2] = d.bus.ReadWord(WordAddr(AutoselectDevice3))
	d.Reset()
	if id.Manufacturer == 0xFFFF || id.Manufacturer == 0 {
		err = ErrNoDevice
	}
	return
}

// ProgramWord starts programming a single word. The caller polls for
// completion with DataPoll.
func (d *Driver) ProgramWord(addr uint32, word uint16) {
	d.unlock()
	d.cmd(UnlockAddr1, CmdProgram)
	d.bus.WriteWord(addr, word)
}

// WriteBuffer starts a write-to-buffer program of words at addr. It never
// crosses a write buffer page and returns the number of words loaded, which
// may be less than len(words). The caller polls the last loaded word.
func (d *Driver) WriteBuffer(addr uint32, words []uint16) int {
	n := BufferWords - int((addr>>1)&(BufferWords-1))
	if len(words) < n {
		n = len(words)
	}
	if n <= 0 {
		return 0
	}
	sa := SectorAddr(SectorIndex(addr))
	d.unlock()
	d.bus.WriteWord(sa, CmdWriteBuffer)
	d.bus.WriteWord(sa, uint16(n-1))
	for i := 0; i < n; i++ {
		d.bus.WriteWord(addr+uint32(i)*2, words[i])
	}
	d.bus.WriteWord(sa, CmdBufferCommit)
	return n
}

type pollState int

const (
	pollBusy pollState = iota
	pollDone
	pollFailed
)

// pollData performs one data poll step on a program operation which
// is expected to leave word at addr.
func (d *Driver) pollData(addr uint32, word uint16) (pollState, uint16) {
	s := d.bus.ReadWord(addr)
	if (s^word)&DQ7 == 0 {
		if s = d.bus.ReadWord(addr); (s^word)&DQ7 == 0 {
			return pollDone, s
		}
		return pollBusy, s
	}
	if s&(DQ5|DQ1) == 0 {
		return pollBusy, s
	}
	if s = d.bus.ReadWord(addr); (s^word)&DQ7 == 0 {
		return pollDone, s
	}
	d.Reset()
	if s&DQ1 != 0 {
		d.abortReset()
	}
	return pollFailed, s
}

// DataPoll waits for the program operation leaving word at addr to finish.
func (d *Driver) DataPoll(addr uint32, word uint16) error {
	for {
		switch state, status := d.pollData(addr, word); state {
		case pollDone:
			return nil
		case pollFailed:
			glog.Errorf("flash: program failed at 0x%06X, status 0x%04X", addr, status)
			return &ProgramError{Addr: addr, Status: status}
		}
	}
}

// ErasePoll waits for the erase operation covering addr to finish.
func (d *Driver) ErasePoll(addr uint32) error {
	for {
		s := d.bus.ReadWord(addr)
		if s&DQ7 != 0 {
			return nil
		}
		if s&DQ5 == 0 {
			continue
		}
		if s = d.bus.ReadWord(addr); s&DQ7 != 0 {
			return nil
		}
		d.Reset()
		glog.Errorf("flash: erase failed at 0x%06X, status 0x%04X", addr, s)
		return &EraseError{Addr: addr, Status: s}
	}
}

// SectorErase erases the sector containing addr.
func (d *Driver) SectorErase(addr uint32) error {
	if addr >= ChipLength {
		return ErrOutOfRange
	}
	sa := SectorAddr(SectorIndex(addr))
	glog.V(2).Infof("flash: erase sector 0x%06X", sa)
	d.unlock()
	d.cmd(UnlockAddr1, CmdEraseSetup)
	d.unlock()
	d.bus.WriteWord(sa, CmdSectorErase)
	for s := d.bus.ReadWord(sa); s&(DQ3|DQ5) == 0; s = d.bus.ReadWord(sa) {
	}
	return d.ErasePoll(sa)
}

// ChipErase erases the whole chip, bootloader included.
func (d *Driver) ChipErase() error {
	glog.V(2).Info("flash: chip erase")
	d.unlock()
	d.cmd(UnlockAddr1, CmdEraseSetup)
	d.unlock()
	d.cmd(UnlockAddr1, CmdChipErase)
	return d.ErasePoll(0)
}

// RangeErase erases every sector overlapping [addr, addr+length).
func (d *Driver) RangeErase(addr, length uint32) error {
	return d.RangeEraseProgress(addr, length, nil)
}

// RangeEraseProgress is RangeErase reporting the number of sectors erased
// so far after each sector.
func (d *Driver) RangeEraseProgress(addr, length uint32, progress func(done, total int)) error {
	if length == 0 {
		return nil
	}
	if err := CheckRange(addr, length); err != nil {
		return err
	}
	first, last := SectorSpan(addr, length)
	total := last - first + 1
	for n := first; n <= last; n++ {
		if err := d.SectorErase(SectorAddr(n)); err != nil {
			return err
		}
		if progress != nil {
			progress(n-first+1, total)
		}
	}
	return nil
}

// Program writes data at addr through write buffers and waits for
// completion. Odd leading and trailing bytes are padded with 0xFF which
// leaves the neighbouring bytes untouched.
func (d *Driver) Program(addr uint32, data []byte) error {
	if err := CheckRange(addr, uint32(len(data))); err != nil {
		return err
	}
	src := wordSource{addr: addr, data: data}
	for a := src.start(); a < src.end(); {
		var words [BufferWords]uint16
		cnt := src.fill(words[:], a)
		n := d.WriteBuffer(a, words[:cnt])
		last := a + uint32(n-1)*2
		if err := d.DataPoll(last, words[n-1]); err != nil {
			return err
		}
		a += uint32(n) * 2
	}
	return nil
}

// wordSource presents a byte range as big-endian words on even addresses.
type wordSource struct {
	addr uint32
	data []byte
}

func (s wordSource) start() uint32 {
	return s.addr &^ 1
}

func (s wordSource) end() uint32 {
	return (s.addr + uint32(len(s.data)) + 1) &^ 1
}

func (s wordSource) byteAt(a uint32) byte {
	if a < s.addr || a-s.addr >= uint32(len(s.data)) {
		return 0xFF
	}
	return s.data[a-s.addr]
}

// fill loads words starting at a up to the end of the page or the data.
func (s wordSource) fill(words []uint16, a uint32) int {
	n := 0
	for ; n < len(words) && a < s.end(); n++ {
		words[n] = uint16(s.byteAt(a))<<8 | uint16(s.byteAt(a+1))
		a += 2
		if (a>>1)&(BufferWords-1) == 0 {
			n++
			break
		}
	}
	return n
}

// written returns the number of data bytes stored below word address a.
func (s wordSource) written(a uint32) int {
	if a <= s.addr {
		return 0
	}
	if n := int(a - s.addr); n < len(s.data) {
		return n
	}
	return len(s.data)
}
