package flash

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange indicates an address range beyond the chip.
	ErrOutOfRange = errors.New("address range out of chip bounds")
	// ErrBusy indicates an asynchronous operation is already in flight.
	ErrBusy = errors.New("flash busy")
)

// ProgramError reports a program operation the chip failed.
type ProgramError struct {
	Addr   uint32
	Status uint16
}

// Error implements error.
func (e *ProgramError) Error() string {
	return fmt.Sprintf("program failed at 0x%06X (status 0x%04X)", e.Addr, e.Status)
}

// EraseError reports an erase operation the chip failed.
type EraseError struct {
	Addr   uint32
	Status uint16
}

// Error implements error.
func (e *EraseError) Error() string {
	return fmt.Sprintf("erase failed at 0x%06X (status 0x%04X)", e.Addr, e.Status)
}

// ErrNoDevice indicates autoselect did not identify a chip.
var ErrNoDevice = errors.New("no flash device")
