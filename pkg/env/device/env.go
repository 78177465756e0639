// Package device assembles the bootloader running on the host: a
// simulated flash chip, the scheduler paced by a frame clock, the
// transport endpoint and the loader.
package device

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mwboot/pkg/env"
	"github.com/robotalks/mwboot/pkg/flash"
	"github.com/robotalks/mwboot/pkg/flash/flashsim"
	"github.com/robotalks/mwboot/pkg/framework"
	"github.com/robotalks/mwboot/pkg/loader"
	"github.com/robotalks/mwboot/pkg/msgs"
	"github.com/robotalks/mwboot/pkg/transport"
	"github.com/robotalks/mwboot/pkg/transport/mqtt"
	"github.com/robotalks/mwboot/pkg/ui"

	// endpoints selectable by ListenURL.
	_ "github.com/robotalks/mwboot/pkg/transport/all"
)

// Scheduler table sizes.
const (
	MaxTasks  = 8
	MaxTimers = 4
)

// Config provides options to run the bootloader.
type Config struct {
	// ListenURL selects the endpoint clients connect to.
	// e.g. tcp://:8000, ws://:8080/boot, serial:///dev/ttyUSB0, mqtt://host:1883/
	ListenURL string
	// FlashFile backs the simulated chip. It is loaded on start and
	// saved on exit.
	FlashFile string
	// MQTTURL, if set, is the broker status events are published to.
	MQTTURL string
	// Device names the bootloader on MQTT.
	Device string

	FrameRate         int
	StatsFrames       int
	Idle              time.Duration
	ProtectBootloader bool
}

var defaultConfig = Config{
	ListenURL:   "tcp://:8000",
	FrameRate:   ui.DefaultFrameRate,
	StatsFrames: 30,
	Idle:        100 * time.Microsecond,
}

func init() {
	if val := os.Getenv("MWBOOT_LISTEN"); val != "" {
		defaultConfig.ListenURL = val
	}
	if val := os.Getenv("MWBOOT_FLASH_FILE"); val != "" {
		defaultConfig.FlashFile = val
	}
	if val := os.Getenv("MWBOOT_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	defaultConfig.Device = env.DeviceID(mqtt.DefaultDevice)
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ListenURL, "listen", defaultConfig.ListenURL, "Endpoint URL to accept clients")
	flag.StringVar(&defaultConfig.FlashFile, "flash", defaultConfig.FlashFile, "File backing the flash chip")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL for status events")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Device name on MQTT")
	flag.IntVar(&defaultConfig.FrameRate, "frame-rate", defaultConfig.FrameRate, "Frames per second")
	flag.IntVar(&defaultConfig.StatsFrames, "stats-frames", defaultConfig.StatsFrames, "Frames between transfer stats")
	flag.DurationVar(&defaultConfig.Idle, "idle", defaultConfig.Idle, "Sleep between scheduler passes")
	flag.BoolVar(&defaultConfig.ProtectBootloader, "protect", defaultConfig.ProtectBootloader, "Reject writes to the bootloader sectors")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the assembled bootloader.
type Env struct {
	Config    *Config
	Sched     *framework.Scheduler
	Clock     *ui.FrameClock
	Chip      *flashsim.Chip
	Flash     *flash.Driver
	Transport *transport.Async
	Endpoint  transport.Endpoint
	Display   ui.Display
	Loader    *loader.Loader

	queue  *mqtt.Queue
	status *mqtt.StatusPublisher
	stats  *framework.Timer
	idle   *framework.Task
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	e := &Env{
		Config:    c,
		Clock:     ui.NewFrameClock(c.FrameRate),
		Chip:      flashsim.New(),
		Transport: transport.NewAsync(),
	}
	if c.FlashFile != "" {
		if err := e.Chip.LoadFile(c.FlashFile); err != nil {
			return nil, fmt.Errorf("load flash file error: %v", err)
		}
	}
	e.Flash = flash.New(e.Chip)
	e.Sched = framework.NewScheduler(e.Clock)
	if err := e.Sched.Init(MaxTasks, MaxTimers); err != nil {
		return nil, err
	}

	if c.Device != "" {
		mqtt.DefaultDevice = c.Device
	}
	ep, err := transport.Open(c.ListenURL)
	if err != nil {
		return nil, fmt.Errorf("open endpoint %q error: %v", c.ListenURL, err)
	}
	e.Endpoint = ep

	displays := ui.Multi{&ui.Console{Prefix: "mwboot"}}
	if c.MQTTURL != "" {
		u, err := url.Parse(c.MQTTURL)
		if err != nil {
			return nil, fmt.Errorf("invalid MQTT URL: %v", err)
		}
		e.queue = mqtt.NewQueueFromURL(u)
		if err := e.queue.Connect(); err != nil {
			return nil, fmt.Errorf("connect MQTT broker error: %v", err)
		}
		e.status = mqtt.NewStatusPublisher(e.queue, c.Device)
		e.status.Frames = e.Sched.Frames
		displays = append(displays, e.status)
	}
	e.Display = displays

	e.Loader = loader.New(loader.Config{
		Sched:             e.Sched,
		Flash:             e.Flash,
		Transport:         e.Transport,
		Display:           e.Display,
		Channel:           e.Transport.Channel,
		ProtectBootloader: c.ProtectBootloader,
		Handoff:           e.handoff,
	})
	e.Transport.OnAttach = e.Loader.Restart

	if e.status != nil && c.StatsFrames > 0 {
		e.stats = framework.NewTimer(e.publishStats)
		e.stats.Start(c.StatsFrames, true)
	}
	if c.Idle > 0 {
		e.idle = framework.NewTask(func() { time.Sleep(c.Idle) })
	}
	if err := e.Sched.Add(e.Transport, e); err != nil {
		return nil, err
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// AddToScheduler implements framework.SchedulerAdder.
func (e *Env) AddToScheduler(s *framework.Scheduler) error {
	if e.idle != nil {
		if err := s.AddTask(e.idle); err != nil {
			return err
		}
	}
	if e.stats != nil {
		return s.AddTimer(e.stats)
	}
	return nil
}

func (e *Env) handoff(addr uint32) {
	glog.Infof("program at 0x%06X takes over, bootloader exits", addr)
	e.Sched.End(0)
}

func (e *Env) publishStats() {
	st := e.Loader.Stats()
	e.status.PublishStats(&msgs.TransferStats{
		State:         st.State.String(),
		Addr:          st.Addr,
		Length:        st.Length,
		Received:      uint32(st.Received),
		Written:       uint32(st.Written),
		FullBuffers:   int32(st.Full),
		MaxFull:       int32(st.MaxFull),
		ReceiveCycles: uint32(st.ReceiveCycles),
		WriteCycles:   uint32(st.WriteCycles),
	})
}

// Run runs the bootloader until the program is handed over or the runner
// is stopped, and returns the scheduler exit code. The endpoint runs on
// runner.
func (e *Env) Run(runner *framework.Runner) (int, error) {
	runner.Go(framework.NamedRun("endpoint", framework.RunFunc(func(ctx context.Context) error {
		return e.Transport.Serve(ctx, e.Endpoint)
	}))).EndScheduler(e.Sched, e.Transport.Mailbox(), 0)
	e.Loader.Start()
	code := e.Sched.Run()
	runner.Stop()
	return code, runner.Wait()
}

// Close saves the flash contents and disconnects from the broker.
func (e *Env) Close() error {
	if e.queue != nil {
		e.queue.Close()
	}
	if e.Config.FlashFile == "" {
		return nil
	}
	return e.Chip.SaveFile(e.Config.FlashFile)
}
