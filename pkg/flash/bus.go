package flash

// Bus is the memory-mapped window onto the chip. Addresses are chip-relative
// byte addresses and word accesses are always on even addresses.
type Bus interface {
	ReadWord(addr uint32) uint16
	WriteWord(addr uint32, v uint16)
}

// ID is the autoselect identification of the chip.
type ID struct {
	Manufacturer uint16
	Device       [3]uint16
}

// Bytes returns the low bytes of the identification words,
// manufacturer first.
func (id ID) Bytes() []byte {
	return []byte{
		byte(id.Manufacturer),
		byte(id.Device[0]),
		byte(id.Device[1]),
		byte(id.Device[2]),
	}
}
