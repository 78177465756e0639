package main

import (
	"github.com/robotalks/mwboot/pkg/cli/sh"
	env "github.com/robotalks/mwboot/pkg/env/connector"

	_ "github.com/robotalks/mwboot/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
