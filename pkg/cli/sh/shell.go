// Package sh provides the interactive shell talking to a bootloader.
package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mwboot/pkg/client"
	env "github.com/robotalks/mwboot/pkg/env/connector"
)

// ErrNotConnected is reported by commands run without a bootloader.
var ErrNotConnected = errors.New("not connected")

// Session is an open connection to a bootloader.
type Session struct {
	URL    string
	Client *client.Client
}

// Shell runs bootloader commands interactively or from arguments.
type Shell struct {
	Batch     bool
	JSON      bool
	Reconnect bool

	Ishell  *ishell.Shell
	Config  *env.Config
	Session *Session
}

const (
	ctxKey     = "mwboot.shell"
	idlePrompt = "mwflash> "
)

var (
	batch    bool
	jsonOut  bool
	registry = []*ishell.Cmd{&ConnectCmd, &DisconnectCmd, &StatusCmd}
)

func init() {
	flag.BoolVar(&batch, "e", batch, "Run the command from arguments only, no interactive shell.")
	flag.BoolVar(&jsonOut, "json", jsonOut, "Print results as JSON.")
}

// AddCmds registers commands. It is called by command packages in init.
func AddCmds(cmds ...*ishell.Cmd) {
	registry = append(registry, cmds...)
}

// New creates a Shell using conf to connect.
func New(conf *env.Config) *Shell {
	s := &Shell{Batch: batch, JSON: jsonOut, Ishell: ishell.New(), Config: conf}
	s.Ishell.Set(ctxKey, s)
	s.Ishell.SetPrompt(idlePrompt)
	for _, cmd := range registry {
		s.Ishell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(ctxKey).(*Shell)
}

// ClientFrom gets the connected client, or nil.
func ClientFrom(c *ishell.Context) *client.Client {
	if sess := ShellFrom(c).Session; sess != nil {
		return sess.Client
	}
	return nil
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ClientFrom(c) == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// ParseUint32 parses decimal, 0x hex or 0 octal numbers.
func ParseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

// Print prints a result, or OK for nil. With JSON output the result is
// marshaled instead.
func Print(c *ishell.Context, result interface{}) {
	if !ShellFrom(c).JSON {
		if result == nil {
			result = "OK"
		}
		c.Println(result)
		return
	}
	out, err := json.Marshal(result)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Connect opens a Session on url, or the configured URL if empty. The
// previous session is closed once the new one is open.
func (s *Shell) Connect(url string) error {
	conf := *s.Config
	if url != "" {
		conf.URL = url
	}
	cl, err := conf.Connect()
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Session = &Session{URL: conf.URL, Client: cl}
	s.Ishell.SetPrompt(conf.URL + "> ")
	return nil
}

// Disconnect closes the current session.
func (s *Shell) Disconnect() {
	if s.Session == nil {
		return
	}
	s.Session.Client.Close()
	s.Session = nil
	s.Ishell.SetPrompt(idlePrompt)
}

// Run connects if Reconnect is set and runs args as a command, or the
// interactive shell without args.
func (s *Shell) Run(args ...string) {
	if s.Reconnect && s.Config.URL != "" {
		if !s.Batch {
			s.Ishell.Printf("Connecting %s ...\n", s.Config.URL)
		}
		if err := s.Connect(""); err != nil {
			log.Fatalf("connect %s: %v", s.Config.URL, err)
		}
	}
	defer s.Disconnect()

	switch {
	case len(args) > 0:
		if err := s.Ishell.Process(args...); err != nil {
			log.Fatalln(err)
		}
	case s.Batch:
		log.Fatalln("command expected")
	default:
		s.Ishell.Run()
	}
}

var (
	// ConnectCmd opens a session.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			var url string
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if err := ShellFrom(c).Connect(url); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the session.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// StatusCmd shows the session.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.JSON {
				st := map[string]interface{}{"connected": s.Session != nil}
				if s.Session != nil {
					st["url"] = s.Session.URL
				}
				Print(c, st)
				return
			}
			if s.Session == nil {
				c.Println(ErrNotConnected)
				return
			}
			c.Println(fmt.Sprintf("connected to %s", s.Session.URL))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s := New(env.NewConfig())
	s.Reconnect = true
	s.Run(flag.Args()...)
}
