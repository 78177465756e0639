// Package flash exposes the bootloader commands in the shell.
package flash

import (
	"fmt"
	"io/ioutil"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mwboot/pkg/cli/sh"
	"github.com/robotalks/mwboot/pkg/loader"
)

func argsUint32(c *ishell.Context, names ...string) ([]uint32, bool) {
	if len(c.Args) < len(names) {
		c.Err(fmt.Errorf("expect %v", names))
		return nil, false
	}
	vals := make([]uint32, len(names))
	for n, name := range names {
		v, err := sh.ParseUint32(c.Args[n])
		if err != nil {
			c.Err(fmt.Errorf("invalid %s %q: %v", name, c.Args[n], err))
			return nil, false
		}
		vals[n] = v
	}
	return vals, true
}

var (
	// VersionCmd queries the protocol version.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"v"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			v, err := sh.ClientFrom(c).Version()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, v)
		}),
	}

	// EchoCmd round-trips text.
	EchoCmd = ishell.Cmd{
		Name: "echo",
		Help: "TEXT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var text string
			for n, arg := range c.Args {
				if n > 0 {
					text += " "
				}
				text += arg
			}
			data, err := sh.ClientFrom(c).Echo([]byte(text))
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, string(data))
		}),
	}

	// IDCmd reads the flash identification.
	IDCmd = ishell.Cmd{
		Name: "id",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			id, err := sh.ClientFrom(c).ID()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, id)
		}),
	}

	// EraseCmd erases sectors.
	EraseCmd = ishell.Cmd{
		Name: "erase",
		Help: "ADDR LEN",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			vals, ok := argsUint32(c, "ADDR", "LEN")
			if !ok {
				return
			}
			if err := sh.ClientFrom(c).Erase(vals[0], vals[1]); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, nil)
		}),
	}

	// ProgramCmd writes a file into flash.
	ProgramCmd = ishell.Cmd{
		Name:    "program",
		Aliases: []string{"p"},
		Help:    "ADDR FILE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			vals, ok := argsUint32(c, "ADDR")
			if !ok {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("expect FILE"))
				return
			}
			data, err := ioutil.ReadFile(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			var progress func(sent, total int)
			if !sh.ShellFrom(c).Batch {
				bar := c.ProgressBar()
				bar.Start()
				defer bar.Stop()
				progress = func(sent, total int) {
					bar.Progress(sent * 100 / total)
				}
			}
			if err := sh.ClientFrom(c).Program(vals[0], data, progress); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, nil)
		}),
	}

	// RunCmd starts the program at an address.
	RunCmd = ishell.Cmd{
		Name: "run",
		Help: "ADDR",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			vals, ok := argsUint32(c, "ADDR")
			if !ok {
				return
			}
			if err := sh.ClientFrom(c).Run(vals[0]); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, nil)
		}),
	}

	// AutorunCmd starts the program at the cartridge entry point.
	AutorunCmd = ishell.Cmd{
		Name: "autorun",
		Help: fmt.Sprintf("starts at 0x%06X", loader.EntryPoint),
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if err := sh.ClientFrom(c).Autorun(); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, nil)
		}),
	}

	// BootAddrCmd queries where the bootloader sectors start.
	BootAddrCmd = ishell.Cmd{
		Name: "bladdr",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			addr, err := sh.ClientFrom(c).BootAddr()
			if err != nil {
				c.Err(err)
				return
			}
			if sh.ShellFrom(c).JSON {
				sh.Print(c, addr)
				return
			}
			sh.Print(c, fmt.Sprintf("0x%06X", addr))
		}),
	}
)

func init() {
	sh.AddCmds(
		&VersionCmd,
		&EchoCmd,
		&IDCmd,
		&EraseCmd,
		&ProgramCmd,
		&RunCmd,
		&AutorunCmd,
		&BootAddrCmd,
	)
}
