package connector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mwboot/pkg/transport"
	"github.com/robotalks/mwboot/pkg/transport/stream"
)

func TestNewConfigCopiesDefault(t *testing.T) {
	conf := NewConfig()
	conf.URL = "tcp://elsewhere:1"
	require.NotEqual(t, conf.URL, Default().URL)
}

func TestConnect(t *testing.T) {
	ln, err := stream.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conf := NewConfig()
	conf.URL = "tcp://" + ln.Addr().String()
	conf.ChunkSize = 512
	c, err := conf.Connect()
	require.NoError(t, err)
	require.Equal(t, 512, c.ChunkSize)
	require.NoError(t, c.Close())

	conf.URL = "nope://x"
	_, err = conf.Connect()
	require.Error(t, err)
	require.Contains(t, err.Error(), transport.ErrUnsupportedScheme.Error())

	conf.URL = ""
	_, err = conf.Connect()
	require.Error(t, err)
}
