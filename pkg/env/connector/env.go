// Package connector provides options for clients connecting to a
// bootloader.
package connector

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/robotalks/mwboot/pkg/client"
	"github.com/robotalks/mwboot/pkg/transport"

	// dialers selectable by URL.
	_ "github.com/robotalks/mwboot/pkg/transport/all"
)

// Config provides common options to connect a bootloader.
type Config struct {
	// URL of the bootloader endpoint.
	// e.g. tcp://cart:8000, ws://cart:8080/boot, mqtt://broker:1883/?device=ID
	URL string

	Timeout   time.Duration
	ChunkSize int
}

var defaultConfig = Config{
	URL:       "tcp://localhost:8000",
	Timeout:   client.DefaultTimeout,
	ChunkSize: 1440,
}

func init() {
	if val := os.Getenv("MWBOOT_ADDR"); val != "" {
		defaultConfig.URL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "addr", defaultConfig.URL, "Bootloader URL.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Timeout of each request.")
	flag.IntVar(&defaultConfig.ChunkSize, "chunk", defaultConfig.ChunkSize, "Bytes per write when streaming images.")
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

// Connect dials the bootloader.
func (c *Config) Connect() (*client.Client, error) {
	if c.URL == "" {
		return nil, errors.New("bootloader URL must be specified")
	}
	conn, err := transport.Dial(c.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", c.URL)
	}
	cl := client.New(conn)
	cl.Timeout, cl.ChunkSize = c.Timeout, c.ChunkSize
	return cl, nil
}

// MustConnect connects to the bootloader or fails.
func (c *Config) MustConnect() *client.Client {
	cl, err := c.Connect()
	if err != nil {
		log.Fatalln(err)
	}
	return cl
}
