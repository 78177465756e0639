package flashsim

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mwboot/pkg/flash"
)

func unlock(c *Chip) {
	c.WriteWord(flash.WordAddr(flash.UnlockAddr1), flash.CmdUnlock1)
	c.WriteWord(flash.WordAddr(flash.UnlockAddr2), flash.CmdUnlock2)
}

func TestAutoselect(t *testing.T) {
	c := New()
	unlock(c)
	c.WriteWord(flash.WordAddr(flash.UnlockAddr1), flash.CmdAutoselect)
	require.Equal(t, "autoselect", c.Mode())
	require.Equal(t, DefaultID.Manufacturer, c.ReadWord(0))
	require.Equal(t, DefaultID.Device[1], c.ReadWord(flash.WordAddr(flash.AutoselectDevice2)))
	c.WriteWord(0, flash.CmdReset)
	require.True(t, c.ReadArray())
	require.Equal(t, uint16(0xFFFF), c.ReadWord(0))
}

func TestSingleWordProgramStatus(t *testing.T) {
	c := New()
	c.ProgramReads = 3
	unlock(c)
	c.WriteWord(flash.WordAddr(flash.UnlockAddr1), flash.CmdProgram)
	c.WriteWord(0x10, 0x0055)

	s1, s2 := c.ReadWord(0x10), c.ReadWord(0x10)
	require.Equal(t, flash.DQ7, s1&flash.DQ7)
	require.NotEqual(t, s1&flash.DQ6, s2&flash.DQ6)
	c.ReadWord(0x10)
	require.Equal(t, uint16(0x0055), c.ReadWord(0x10))
	require.Equal(t, []Op{{Kind: OpProgram, Addr: 0x10, Words: 1}}, c.Ops())
}

func TestProgramAndsData(t *testing.T) {
	c := New()
	c.Fill(0, []byte{0x0F, 0xF0})
	unlock(c)
	c.WriteWord(flash.WordAddr(flash.UnlockAddr1), flash.CmdProgram)
	c.WriteWord(0, 0x3C3C)
	for !c.ReadArray() {
		c.ReadWord(0)
	}
	require.Equal(t, []byte{0x0C, 0x30}, c.Bytes(0, 2))
}

func TestWriteBufferAbortOnCountOverflow(t *testing.T) {
	c := New()
	unlock(c)
	c.WriteWord(0x40, flash.CmdWriteBuffer)
	c.WriteWord(0x40, flash.BufferWords)
	require.Equal(t, "abort", c.Mode())
	c.WriteWord(0, flash.CmdReset)
	require.Equal(t, "abort", c.Mode())
	unlock(c)
	c.WriteWord(flash.WordAddr(flash.UnlockAddr1), flash.CmdReset)
	require.True(t, c.ReadArray())
}

func TestEraseStatusSequence(t *testing.T) {
	c := New()
	c.EraseStartReads, c.EraseReads = 2, 2
	c.Fill(0x20000, []byte{0})
	unlock(c)
	c.WriteWord(flash.WordAddr(flash.UnlockAddr1), flash.CmdEraseSetup)
	unlock(c)
	c.WriteWord(0x20010, flash.CmdSectorErase)
	require.Equal(t, []Op{{Kind: OpSectorErase, Addr: 0x20000}}, c.Ops())

	var status []uint16
	for i := 0; i < 4; i++ {
		status = append(status, c.ReadWord(0x20000)&(flash.DQ7|flash.DQ3))
	}
	require.Equal(t, []uint16{0, 0, flash.DQ3, flash.DQ3}, status)
	require.True(t, c.ReadArray())
	require.Equal(t, []byte{0xFF}, c.Bytes(0x20000, 1))
}

func TestInjectedEraseFailure(t *testing.T) {
	c := New()
	c.FailErase(0x3F2000)
	unlock(c)
	c.WriteWord(flash.WordAddr(flash.UnlockAddr1), flash.CmdEraseSetup)
	unlock(c)
	c.WriteWord(0x3F2000, flash.CmdSectorErase)
	for i := 0; i < DefaultEraseStartReads+DefaultEraseReads; i++ {
		c.ReadWord(0x3F2000)
	}
	require.Equal(t, "failed", c.Mode())
	require.Equal(t, flash.DQ5, c.ReadWord(0x3F2000)&flash.DQ5)
	c.WriteWord(0, flash.CmdReset)
	require.True(t, c.ReadArray())
	c.ClearFaults()
}

func TestSaveLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "flashsim")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "flash.bin")

	c := New()
	require.NoError(t, c.LoadFile(path))
	c.Fill(0x100, []byte("image"))
	require.NoError(t, c.SaveFile(path))

	c2 := New()
	require.NoError(t, c2.LoadFile(path))
	require.Equal(t, []byte("image"), c2.Bytes(0x100, 5))

	require.NoError(t, c2.Load(bytes.NewReader([]byte{1, 2})))
	require.Equal(t, []byte{1, 2, 0xFF}, c2.Bytes(0, 3))
}
