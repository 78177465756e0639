package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	env "github.com/robotalks/mwboot/pkg/env/device"
	"github.com/robotalks/mwboot/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	e := env.NewConfig().MustNewEnv()
	code, err := e.Run(framework.NewRunner().HandleSignals())
	if err != nil {
		glog.Errorf("runners: %v", err)
	}
	if err := e.Close(); err != nil {
		glog.Errorf("save flash: %v", err)
		code = 1
	}
	glog.Flush()
	os.Exit(code)
}
