// Package stream provides the TCP endpoint.
package stream

import (
	"context"
	"io"
	"net"
	"net/url"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/framework"
	"github.com/robotalks/mwboot/pkg/transport"
)

// Scheme is the URL scheme of the endpoint.
const Scheme = "tcp"

// Listener accepts TCP clients. A new client replaces the current one.
type Listener struct {
	ln net.Listener
}

// Listen starts listening on addr.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops listening.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Serve implements transport.Endpoint. The listener is closed when Serve
// returns.
func (l *Listener) Serve(ctx context.Context, attach transport.AttachFunc) error {
	glog.Infof("listening on tcp://%s", l.ln.Addr())
	return framework.RunWithContextCloser(ctx, l.ln, func() error {
		for {
			conn, err := l.ln.Accept()
			if err != nil {
				return err
			}
			glog.Infof("client %s connected", conn.RemoteAddr())
			if tcp, ok := conn.(*net.TCPConn); ok {
				tcp.SetNoDelay(true)
			}
			attach(conn)
		}
	})
}

// Dial connects to a TCP endpoint.
func Dial(addr string) (io.ReadWriteCloser, error) {
	return net.Dial("tcp", addr)
}

func init() {
	transport.Register(Scheme, func(u *url.URL) (transport.Endpoint, error) {
		return Listen(u.Host)
	})
	transport.RegisterDialer(Scheme, func(u *url.URL) (io.ReadWriteCloser, error) {
		return Dial(u.Host)
	})
}
