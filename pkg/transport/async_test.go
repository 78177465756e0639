package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mwboot/pkg/framework"
)

func newTestAsync(t *testing.T) (*framework.Scheduler, *Async) {
	s := framework.NewScheduler(nil)
	require.NoError(t, s.Init(4, 4))
	a := NewAsync()
	require.NoError(t, s.Add(a))
	return s, a
}

func passUntil(t *testing.T, s *framework.Scheduler, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "timeout")
		s.Pass()
		time.Sleep(time.Millisecond)
	}
}

func TestAsyncRecvSend(t *testing.T) {
	s, a := newTestAsync(t)
	attached := 0
	a.OnAttach = func() { attached++ }

	local, remote := net.Pipe()
	defer remote.Close()

	var got []byte
	var status Status
	received := false
	buf := make([]byte, 16)
	require.NoError(t, a.Recv(buf, func(st Status, ch int, data []byte) {
		require.Equal(t, DefaultChannel, ch)
		status, got, received = st, append([]byte(nil), data...), true
	}))
	require.Equal(t, ErrBusy, a.Recv(buf, nil))

	a.Attach(local)
	passUntil(t, s, func() bool { return attached == 1 })
	require.True(t, a.Connected())

	go remote.Write([]byte("hello"))
	passUntil(t, s, func() bool { return received })
	require.Equal(t, StatusOK, status)
	require.Equal(t, []byte("hello"), got)

	readCh := make(chan []byte, 1)
	go func() {
		b := make([]byte, 4)
		n, _ := io.ReadFull(remote, b)
		readCh <- b[:n]
	}()
	sent := false
	require.NoError(t, a.Send(DefaultChannel, []byte("pong"), "ctx", func(st Status, ch int, ctx interface{}) {
		require.Equal(t, StatusOK, st)
		require.Equal(t, "ctx", ctx)
		sent = true
	}))
	require.Equal(t, ErrBusy, a.Send(DefaultChannel, nil, nil, nil))
	passUntil(t, s, func() bool { return sent })
	require.Equal(t, []byte("pong"), <-readCh)
}

func TestAsyncWrongChannel(t *testing.T) {
	s, a := newTestAsync(t)
	local, remote := net.Pipe()
	defer remote.Close()
	a.Attach(local)
	passUntil(t, s, a.Connected)

	var status Status
	sent := false
	require.NoError(t, a.Send(3, []byte("x"), nil, func(st Status, ch int, ctx interface{}) {
		require.Equal(t, 3, ch)
		status, sent = st, true
	}))
	passUntil(t, s, func() bool { return sent })
	require.Equal(t, StatusChannelError, status)
	require.True(t, a.Connected())
}

func TestAsyncPeerClose(t *testing.T) {
	s, a := newTestAsync(t)
	local, remote := net.Pipe()
	a.Attach(local)
	passUntil(t, s, a.Connected)

	var status Status
	received := false
	require.NoError(t, a.Recv(make([]byte, 4), func(st Status, ch int, data []byte) {
		status, received = st, true
	}))
	remote.Close()
	passUntil(t, s, func() bool { return received })
	require.Equal(t, StatusClosed, status)
	require.False(t, a.Connected())

	sent := false
	require.NoError(t, a.Send(DefaultChannel, []byte("x"), nil, func(st Status, ch int, ctx interface{}) {
		status, sent = st, true
	}))
	passUntil(t, s, func() bool { return sent })
	require.Equal(t, StatusClosed, status)
}

func TestAsyncReattach(t *testing.T) {
	s, a := newTestAsync(t)
	attached := 0
	a.OnAttach = func() { attached++ }

	local1, remote1 := net.Pipe()
	defer remote1.Close()
	a.Attach(local1)
	passUntil(t, s, func() bool { return attached == 1 })

	var statuses []Status
	require.NoError(t, a.Recv(make([]byte, 4), func(st Status, ch int, data []byte) {
		statuses = append(statuses, st)
		require.Equal(t, 1, attached)
	}))

	local2, remote2 := net.Pipe()
	defer remote2.Close()
	a.Attach(local2)
	passUntil(t, s, func() bool { return attached == 2 })
	require.Equal(t, []Status{StatusClosed}, statuses)
	require.True(t, a.Connected())
}

func TestNotifyCloser(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewNotifyCloser(local)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	select {
	case <-c.Closed():
	default:
		t.Fatal("not closed")
	}
}

func TestOpenUnknownScheme(t *testing.T) {
	_, err := Open("gopher://localhost")
	require.Equal(t, ErrUnsupportedScheme, err)
}
