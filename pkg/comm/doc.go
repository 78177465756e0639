// Package comm implements the bootloader wire protocol.
package comm

// Every exchange is a frame: a 16-bit command code, a 16-bit payload
// length and the payload, all integers big-endian. The client sends a
// request frame and the bootloader answers with exactly one reply frame
// whose command is OK or ERROR.
//
// PROGRAM is the exception to the frame-per-message rule: after the OK
// reply the client streams the raw image bytes with no framing, and the
// next frame starts right after the last image byte.
