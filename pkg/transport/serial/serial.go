// Package serial provides the serial port endpoint.
package serial

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/mwboot/pkg/transport"
)

// Scheme is the URL scheme of the endpoint, like serial:///dev/ttyUSB0?baud=500000.
const Scheme = "serial"

// DefaultBaudRate is used when the URL does not specify one.
const DefaultBaudRate = 500000

// ReopenDelay is the wait before reopening a port which went away.
var ReopenDelay = time.Second

// Port is a serial port endpoint. The port is the only client.
type Port struct {
	Name string
	Mode serial.Mode
}

// New creates a Port from a URL.
func New(u *url.URL) (*Port, error) {
	p := &Port{
		Name: u.Path,
		Mode: serial.Mode{
			BaudRate: DefaultBaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	if baud := u.Query().Get("baud"); baud != "" {
		rate, err := strconv.Atoi(baud)
		if err != nil {
			return nil, err
		}
		p.Mode.BaudRate = rate
	}
	return p, nil
}

// Open opens the port.
func (p *Port) Open() (io.ReadWriteCloser, error) {
	mode := p.Mode
	return serial.Open(p.Name, &mode)
}

// Serve implements transport.Endpoint.
func (p *Port) Serve(ctx context.Context, attach transport.AttachFunc) error {
	for {
		port, err := p.Open()
		if err != nil {
			glog.Warningf("open %s: %v", p.Name, err)
		} else {
			glog.Infof("serial port %s opened at %d baud", p.Name, p.Mode.BaudRate)
			nc := transport.NewNotifyCloser(port)
			attach(nc)
			select {
			case <-nc.Closed():
			case <-ctx.Done():
				nc.Close()
				return ctx.Err()
			}
		}
		select {
		case <-time.After(ReopenDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func init() {
	transport.Register(Scheme, func(u *url.URL) (transport.Endpoint, error) {
		return New(u)
	})
	transport.RegisterDialer(Scheme, func(u *url.URL) (io.ReadWriteCloser, error) {
		p, err := New(u)
		if err != nil {
			return nil, err
		}
		return p.Open()
	})
}
