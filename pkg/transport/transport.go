// Package transport connects the bootloader to the client.
//
// The bootloader consumes the transport through Transport, an asynchronous
// interface with at most one receive and one send in flight. Completions
// are delivered on the scheduler goroutine.
package transport

import (
	"errors"
	"fmt"
)

// Status is the outcome of a receive or send.
type Status int

// Statuses.
const (
	StatusOK Status = iota
	StatusFramingError
	StatusChannelError
	StatusLengthError
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFramingError:
		return "framing error"
	case StatusChannelError:
		return "channel error"
	case StatusLengthError:
		return "length error"
	case StatusClosed:
		return "closed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// DefaultChannel is the channel the bootloader talks on.
const DefaultChannel = 1

// RecvFunc receives the data read on channel ch.
type RecvFunc func(status Status, ch int, data []byte)

// SendFunc is called once the data handed to Send is written. ctx is the
// value given to Send.
type SendFunc func(status Status, ch int, ctx interface{})

// Transport is the asynchronous transport the bootloader drives.
type Transport interface {
	// Recv reads at most len(buf) bytes into buf.
	Recv(buf []byte, done RecvFunc) error
	// Send writes data on channel ch. data must stay untouched until done.
	Send(ch int, data []byte, ctx interface{}, done SendFunc) error
}

var (
	// ErrBusy indicates an operation in the same direction is in flight.
	ErrBusy = errors.New("transport busy")
	// ErrUnsupportedScheme indicates no endpoint is registered for a URL scheme.
	ErrUnsupportedScheme = errors.New("unsupported transport scheme")
)
