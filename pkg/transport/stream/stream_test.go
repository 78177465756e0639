package stream

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mwboot/pkg/transport"
)

func TestListenerAttachesClients(t *testing.T) {
	ep, err := transport.Open("tcp://127.0.0.1:0")
	require.NoError(t, err)
	l := ep.(*Listener)

	ctx, cancel := context.WithCancel(context.Background())
	attached := make(chan io.ReadWriteCloser, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Serve(ctx, func(conn io.ReadWriteCloser) { attached <- conn })
	}()

	client, err := transport.Dial("tcp://" + l.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	server := <-attached
	defer server.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)
	b := make([]byte, 4)
	_, err = io.ReadFull(server, b)
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), b)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}
