package mqtt

import (
	"context"
	"io"
	"net/url"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/transport"
)

// Scheme is the URL scheme of the endpoint, like mqtt://broker:1883/prefix/?device=cart.
const Scheme = "mqtt"

// Topic suffixes.
const (
	TopicRx     = "rx"
	TopicTx     = "tx"
	TopicHello  = "hello"
	TopicStatus = "status"
	TopicStats  = "stats"
)

// DefaultDevice is the device name used when the URL does not specify one.
var DefaultDevice = "mwboot"

// connBacklog is the number of messages buffered before the broker
// dispatch blocks.
const connBacklog = 64

// Conn presents a pair of topics as a byte stream.
type Conn struct {
	pub     func([]byte) error
	sub     io.Closer
	ch      chan []byte
	done    chan struct{}
	once    sync.Once
	pending []byte
}

func newConn(pub func([]byte) error) *Conn {
	return &Conn{
		pub:  pub,
		ch:   make(chan []byte, connBacklog),
		done: make(chan struct{}),
	}
}

// NewConn creates a Conn reading from subTopic and writing to pubTopic.
func NewConn(q *Queue, subTopic, pubTopic string) *Conn {
	c := newConn(func(b []byte) error {
		token := q.Pub(pubTopic, b)
		token.Wait()
		return token.Error()
	})
	c.sub = q.Sub(subTopic, func(_ string, payload []byte) { c.deliver(payload) })
	return c
}

func (c *Conn) deliver(payload []byte) {
	select {
	case c.ch <- payload:
	case <-c.done:
	}
}

// Read implements io.Reader.
func (c *Conn) Read(b []byte) (int, error) {
	if len(c.pending) == 0 {
		select {
		case c.pending = <-c.ch:
		case <-c.done:
			return 0, io.EOF
		}
	}
	n := copy(b, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (c *Conn) Write(b []byte) (int, error) {
	select {
	case <-c.done:
		return 0, io.ErrClosedPipe
	default:
	}
	payload := append([]byte(nil), b...)
	if err := c.pub(payload); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close implements io.Closer.
func (c *Conn) Close() (err error) {
	c.once.Do(func() {
		close(c.done)
		if c.sub != nil {
			err = c.sub.Close()
		}
	})
	return
}

// Endpoint attaches a new Conn whenever a client says hello.
type Endpoint struct {
	Queue  *Queue
	Device string
}

// NewEndpoint creates an Endpoint from URL.
func NewEndpoint(u *url.URL) *Endpoint {
	return &Endpoint{Queue: NewQueueFromURL(u), Device: deviceOf(u)}
}

func deviceOf(u *url.URL) string {
	if dev := u.Query().Get("device"); dev != "" {
		return dev
	}
	return DefaultDevice
}

// Serve implements transport.Endpoint.
func (e *Endpoint) Serve(ctx context.Context, attach transport.AttachFunc) error {
	if err := e.Queue.Connect(); err != nil {
		return err
	}
	defer e.Queue.Close()
	prefix := e.Device + "/"
	hello := e.Queue.Sub(prefix+TopicHello, func(string, []byte) {
		glog.Infof("mqtt client session on %s", e.Device)
		attach(NewConn(e.Queue, prefix+TopicRx, prefix+TopicTx))
	})
	defer hello.Close()
	attach(NewConn(e.Queue, prefix+TopicRx, prefix+TopicTx))
	<-ctx.Done()
	return ctx.Err()
}

// Dial connects to the bootloader as a client.
func Dial(u *url.URL) (io.ReadWriteCloser, error) {
	q := NewQueueFromURL(u)
	if err := q.Connect(); err != nil {
		return nil, err
	}
	prefix := deviceOf(u) + "/"
	conn := NewConn(q, prefix+TopicTx, prefix+TopicRx)
	if token := conn.sub.(*Subscription).Token; token != nil {
		token.Wait()
	}
	token := q.Pub(prefix+TopicHello, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		conn.Close()
		q.Close()
		return nil, err
	}
	return &clientConn{Conn: conn, queue: q}, nil
}

type clientConn struct {
	*Conn
	queue *Queue
}

func (c *clientConn) Close() error {
	err := c.Conn.Close()
	c.queue.Close()
	return err
}

func init() {
	transport.Register(Scheme, func(u *url.URL) (transport.Endpoint, error) {
		return NewEndpoint(u), nil
	})
	transport.RegisterDialer(Scheme, Dial)
}
