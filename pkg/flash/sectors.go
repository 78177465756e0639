package flash

import (
	"sort"
)

// Sector layout: 63 uniform 64 KiB sectors followed by eight 8 KiB boot sectors.
const (
	bigSectorLen    = 64 << 10
	bigSectors      = 63
	bootSectorLen   = 8 << 10
	bootSectors     = 8
	bootSectorsBase = bigSectors * bigSectorLen
)

var sectorTable = func() []uint32 {
	tbl := make([]uint32, 0, bigSectors+bootSectors)
	for i := 0; i < bigSectors; i++ {
		tbl = append(tbl, uint32(i*bigSectorLen))
	}
	for i := 0; i < bootSectors; i++ {
		tbl = append(tbl, uint32(bootSectorsBase+i*bootSectorLen))
	}
	return tbl
}()

// SectorCount returns the number of sectors of the chip.
func SectorCount() int {
	return len(sectorTable)
}

// SectorAddr returns the start address of sector n.
func SectorAddr(n int) uint32 {
	return sectorTable[n]
}

// SectorLen returns the length of sector n.
func SectorLen(n int) uint32 {
	if n+1 < len(sectorTable) {
		return sectorTable[n+1] - sectorTable[n]
	}
	return ChipLength - sectorTable[n]
}

// SectorIndex returns the sector containing addr: the last sector whose
// start is not above addr. addr must be inside the chip.
func SectorIndex(addr uint32) int {
	return sort.Search(len(sectorTable), func(i int) bool {
		return sectorTable[i] > addr
	}) - 1
}

// SectorSpan returns the inclusive span of sectors covering
// [addr, addr+length). length must be non-zero and the range inside the chip.
func SectorSpan(addr, length uint32) (first, last int) {
	return SectorIndex(addr), SectorIndex(addr + length - 1)
}

// CheckRange verifies [addr, addr+length) lies inside the chip.
func CheckRange(addr, length uint32) error {
	if uint64(addr)+uint64(length) > ChipLength {
		return ErrOutOfRange
	}
	return nil
}
