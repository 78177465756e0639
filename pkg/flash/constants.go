package flash

// Chip geometry.
const (
	// ChipLength is the addressable length of the chip in bytes.
	ChipLength = 4 << 20
	// BufferWords is the size of the on-chip write buffer in 16-bit words.
	BufferWords = 16
	// BufferBytes is the size of the on-chip write buffer in bytes.
	BufferBytes = BufferWords * 2
	// BootloaderAddr is the start of the top 64 KiB holding the bootloader.
	BootloaderAddr = 0x3F0000
	// BootloaderLength is the length of the bootloader region.
	BootloaderLength = ChipLength - BootloaderAddr
)

// Command addresses, as word offsets from the chip base.
const (
	UnlockAddr1 uint32 = 0x555
	UnlockAddr2 uint32 = 0x2AA
)

// Command data cycles.
const (
	CmdUnlock1      uint16 = 0xAA
	CmdUnlock2      uint16 = 0x55
	CmdAutoselect   uint16 = 0x90
	CmdProgram      uint16 = 0xA0
	CmdWriteBuffer  uint16 = 0x25
	CmdBufferCommit uint16 = 0x29
	CmdEraseSetup   uint16 = 0x80
	CmdChipErase    uint16 = 0x10
	CmdSectorErase  uint16 = 0x30
	CmdUnlockBypass uint16 = 0x20
	CmdReset        uint16 = 0xF0
)

// Autoselect word offsets.
const (
	AutoselectManufacturer uint32 = 0x00
	AutoselectDevice1      uint32 = 0x01
	AutoselectDevice2      uint32 = 0x0E
	AutoselectDevice3      uint32 = 0x0F
)

// DQ status bits read back while an embedded operation runs.
const (
	// DQ7 reads the complement of the programmed bit until done, 0 while erasing.
	DQ7 uint16 = 1 << 7
	// DQ6 toggles on every read while busy.
	DQ6 uint16 = 1 << 6
	// DQ5 is set when the operation exceeded its timing limits.
	DQ5 uint16 = 1 << 5
	// DQ3 goes high once the sector erase has started.
	DQ3 uint16 = 1 << 3
	// DQ1 is set when a write-to-buffer sequence was aborted.
	DQ1 uint16 = 1 << 1
)

// WordAddr converts a command word offset into a chip byte address.
func WordAddr(offset uint32) uint32 {
	return offset << 1
}
