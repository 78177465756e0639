// Package ui provides the on-screen status surface of the bootloader.
package ui

import (
	"fmt"

	"github.com/golang/glog"
)

// Level is the severity of a message.
type Level int

// Levels.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Display shows status to the operator.
type Display interface {
	Message(level Level, text string)
	Progress(done, total int)
	Clear()
}

// Console is a Display writing to the log.
type Console struct {
	Prefix string
}

// Message implements Display.
func (c *Console) Message(level Level, text string) {
	switch level {
	case LevelError:
		glog.Errorf("%s%s", c.Prefix, text)
	case LevelWarning:
		glog.Warningf("%s%s", c.Prefix, text)
	default:
		glog.Infof("%s%s", c.Prefix, text)
	}
}

// Progress implements Display.
func (c *Console) Progress(done, total int) {
	glog.V(1).Infof("%s%d/%d", c.Prefix, done, total)
}

// Clear implements Display.
func (c *Console) Clear() {}

// Multi fans out to a list of Displays.
type Multi []Display

// Message implements Display.
func (m Multi) Message(level Level, text string) {
	for _, d := range m {
		d.Message(level, text)
	}
}

// Progress implements Display.
func (m Multi) Progress(done, total int) {
	for _, d := range m {
		d.Progress(done, total)
	}
}

// Clear implements Display.
func (m Multi) Clear() {
	for _, d := range m {
		d.Clear()
	}
}

// Discard is a Display showing nothing.
var Discard Display = discard{}

type discard struct{}

func (discard) Message(Level, string) {}
func (discard) Progress(int, int)     {}
func (discard) Clear()                {}
