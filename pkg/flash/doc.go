// Package flash drives the cartridge's memory-mapped NOR flash chip.
//
// The driver speaks the JEDEC command set of the S29GL032 family in 16-bit
// mode: every operation starts with the two-cycle unlock sequence, followed
// by the operation command, and completes by polling the DQ status bits
// read back from the chip. Short operations busy-wait; long sequential
// writes go through ProgramAsync, which polls from a scheduler task.
package flash
