// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/mwboot/pkg/cli/cmds/flash"
)
