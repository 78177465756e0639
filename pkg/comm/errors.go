package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrShortFrame indicates the bytes do not hold a complete frame.
	ErrShortFrame = errors.New("short frame")
	// ErrUnknownCommand indicates a command code without a handler.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrOutOfRange indicates a memory range beyond the chip.
	ErrOutOfRange = errors.New("range out of bounds")
)

// LengthError reports a declared payload length the command does not accept.
type LengthError struct {
	Cmd      Cmd
	Declared int
	Expected int
}

// Error implements error.
func (e *LengthError) Error() string {
	return fmt.Sprintf("%s: length %d, expect %d", e.Cmd, e.Declared, e.Expected)
}
