package transport

import (
	"context"
	"io"
	"net/url"
	"sort"
	"sync"
)

// AttachFunc hands a client connection over to the transport.
type AttachFunc func(io.ReadWriteCloser)

// Endpoint accepts client connections.
type Endpoint interface {
	// Serve attaches client connections until ctx is done.
	Serve(ctx context.Context, attach AttachFunc) error
}

// EndpointFactory creates an Endpoint from a URL.
type EndpointFactory func(u *url.URL) (Endpoint, error)

var (
	factoriesLock sync.RWMutex
	factories     = make(map[string]EndpointFactory)
)

// Register registers an EndpointFactory for a URL scheme.
// It is used by endpoint packages during init func.
func Register(scheme string, factory EndpointFactory) {
	factoriesLock.Lock()
	factories[scheme] = factory
	factoriesLock.Unlock()
}

// Schemes lists registered URL schemes.
func Schemes() []string {
	factoriesLock.RLock()
	defer factoriesLock.RUnlock()
	schemes := make([]string, 0, len(factories))
	for scheme := range factories {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Open creates the Endpoint for a URL like tcp://:8000.
func Open(endpointURL string) (Endpoint, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return nil, err
	}
	factoriesLock.RLock()
	factory := factories[u.Scheme]
	factoriesLock.RUnlock()
	if factory == nil {
		return nil, ErrUnsupportedScheme
	}
	return factory(u)
}

// Serve runs the endpoint attaching connections to a, until ctx is done.
func (a *Async) Serve(ctx context.Context, ep Endpoint) error {
	return ep.Serve(ctx, a.Attach)
}

// NotifyCloser wraps a connection and reports when it is closed.
type NotifyCloser struct {
	io.ReadWriteCloser
	once   sync.Once
	closed chan struct{}
}

// NewNotifyCloser wraps conn.
func NewNotifyCloser(conn io.ReadWriteCloser) *NotifyCloser {
	return &NotifyCloser{ReadWriteCloser: conn, closed: make(chan struct{})}
}

// Close implements io.Closer.
func (c *NotifyCloser) Close() (err error) {
	c.once.Do(func() {
		err = c.ReadWriteCloser.Close()
		close(c.closed)
	})
	return
}

// Closed is closed once the connection is closed.
func (c *NotifyCloser) Closed() <-chan struct{} {
	return c.closed
}

// DialFunc connects to a bootloader endpoint from the client side.
type DialFunc func(u *url.URL) (io.ReadWriteCloser, error)

var dialers = make(map[string]DialFunc)

// RegisterDialer registers a DialFunc for a URL scheme.
func RegisterDialer(scheme string, dial DialFunc) {
	factoriesLock.Lock()
	dialers[scheme] = dial
	factoriesLock.Unlock()
}

// Dial connects to the bootloader at a URL like tcp://cart:8000.
func Dial(endpointURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return nil, err
	}
	factoriesLock.RLock()
	dial := dialers[u.Scheme]
	factoriesLock.RUnlock()
	if dial == nil {
		return nil, ErrUnsupportedScheme
	}
	return dial(u)
}
