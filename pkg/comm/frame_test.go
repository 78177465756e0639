package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{"no data", Frame{Cmd: CmdVersionGet}, []byte{0, 0, 0, 0}},
		{"data", Frame{Cmd: CmdEcho, Data: []byte("HI")}, []byte{0, 1, 0, 2, 'H', 'I'}},
		{"ok", OK([]byte{1, 0}), []byte{0, 0, 0, 2, 1, 0}},
		{"error", Error(), []byte{0, 1, 0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.frame.Bytes())
			var buf bytes.Buffer
			n, err := tc.frame.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.EqualValues(t, len(tc.expect), n)
		})
	}
}

func TestParseFrame(t *testing.T) {
	in := []byte{0, 1, 0, 3, 'a', 'b', 'c', 0, 0}
	f, rest, err := ParseFrame(in)
	require.NoError(t, err)
	require.Equal(t, CmdEcho, f.Cmd)
	require.Equal(t, []byte("abc"), f.Data)
	require.Equal(t, []byte{0, 0}, rest)

	_, _, err = ParseFrame(rest)
	require.Equal(t, ErrShortFrame, err)
	_, _, err = ParseFrame(in[:6])
	require.Equal(t, ErrShortFrame, err)

	_, _, err = ParseFrame([]byte{0, 1, 0x05, 0xA1})
	le, ok := err.(*LengthError)
	require.True(t, ok)
	require.Equal(t, 0x5A1, le.Declared)
}

func TestReadFrame(t *testing.T) {
	var buf bytes.Buffer
	Frame{Cmd: CmdEcho, Data: []byte("HELLOWORLD")}.WriteTo(&buf)
	Error().WriteTo(&buf)
	f, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, CmdEcho, f.Cmd)
	require.Equal(t, []byte("HELLOWORLD"), f.Data)
	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, CmdError, f.Cmd)
	require.Empty(t, f.Data)
	_, err = ReadFrame(&buf)
	require.Error(t, err)
}

func TestCmdString(t *testing.T) {
	require.Equal(t, "PROGRAM", CmdProgram.String())
	require.Equal(t, "BOOTLOADER_ADDR_GET", CmdBootAddrGet.String())
	require.Equal(t, "CMD(42)", Cmd(42).String())
	require.Equal(t, 9, NumCmds)
}
