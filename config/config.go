// Package config holds the settings of the sbdd daemon, read from a TOML file and
// overridden by command line flags.
package config

import (
	"flag"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Duration reads TOML strings such as "30s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type DirectIP struct {
	// Listen is the address the gateway connects to with MO messages.
	Listen         string
	IdleTimeout    Duration
	SessionTimeout Duration
	// MaxConnections caps concurrent sessions, 0 for no cap.
	MaxConnections int
	// Confirm sends an MO confirmation back before closing each session.
	Confirm         bool
	ShutdownTimeout Duration
	// OutcomeBuffer is how many session outcomes may wait for subscribers.
	OutcomeBuffer int
}

type Storage struct {
	// Root of the file store, empty to disable it.
	Root      string
	Memory    bool
	DedupSize int

	RedisAddr     string
	MongoURL      string
	MongoDatabase string
}

type Monitor struct {
	// Listen is the HTTP address of the monitor, empty to disable it.
	Listen string
}

type Config struct {
	DirectIP DirectIP
	Storage  Storage
	Monitor  Monitor
}

func Default() *Config {
	return &Config{
		DirectIP: DirectIP{
			Listen:          ":10800",
			IdleTimeout:     Duration{30 * time.Second},
			SessionTimeout:  Duration{2 * time.Minute},
			ShutdownTimeout: Duration{10 * time.Second},
			OutcomeBuffer:   64,
		},
		Storage: Storage{
			Root:          "~/sbd",
			DedupSize:     1024,
			MongoDatabase: "sbd",
		},
	}
}

// Load reads file on top of the defaults. An empty file name gives the defaults.
func Load(file string) (*Config, error) {
	c := Default()
	if file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return nil, errors.Wrap(err, "config")
		}
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, errors.Wrapf(err, "config %v", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("config %v: unknown key %v", path, undecoded[0])
		}
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) finish() error {
	if c.Storage.Root != "" {
		root, err := homedir.Expand(c.Storage.Root)
		if err != nil {
			return errors.Wrap(err, "storage root")
		}
		c.Storage.Root = root
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.DirectIP.Listen == "":
		return errors.New("config: DirectIP.Listen is empty")
	case c.DirectIP.IdleTimeout.Duration <= 0 || c.DirectIP.SessionTimeout.Duration <= 0:
		return errors.New("config: DirectIP timeouts must be positive")
	case c.DirectIP.MaxConnections < 0:
		return errors.New("config: DirectIP.MaxConnections is negative")
	case c.DirectIP.OutcomeBuffer < 0:
		return errors.New("config: DirectIP.OutcomeBuffer is negative")
	case c.Storage.DedupSize < 0:
		return errors.New("config: Storage.DedupSize is negative")
	}
	return nil
}

// Overrides are the flags that take precedence over the file.
type Overrides struct {
	fs      *flag.FlagSet
	addr    string
	root    string
	confirm bool
	monitor string
}

// RegisterFlags adds -addr, -root, -confirm and -monitor to fs.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	o := &Overrides{fs: fs}
	fs.StringVar(&o.addr, "addr", "", "DirectIP listen address, overrides DirectIP.Listen")
	fs.StringVar(&o.root, "root", "", "File store root, overrides Storage.Root")
	fs.BoolVar(&o.confirm, "confirm", false, "Send MO confirmations, overrides DirectIP.Confirm")
	fs.StringVar(&o.monitor, "monitor", "", "Monitor listen address, overrides Monitor.Listen")
	return o
}

// Apply copies the flags that were set on the command line into c.
func (o *Overrides) Apply(c *Config) error {
	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			c.DirectIP.Listen = o.addr
		case "root":
			c.Storage.Root = o.root
		case "confirm":
			c.DirectIP.Confirm = o.confirm
		case "monitor":
			c.Monitor.Listen = o.monitor
		}
	})
	return c.finish()
}
