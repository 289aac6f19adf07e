package main

import (
	"errors"
	"time"

	"github.com/hatstand/dashwatch/config"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
)

// ErrSilentDiscovery is returned when silent output would hide the discovery
// trace.
var ErrSilentDiscovery = errors.New("-silent cannot be combined with discovery mode")

// Options holds the command line. Zero values leave the settings file (or
// its defaults) in charge.
type Options struct {
	ConfigFile  string
	Target      string
	Interface   int
	Window      time.Duration
	ReadTimeout time.Duration
	Discovery   bool
	ListDevices bool

	Database    string
	WebPushKey  string
	DoorPin     int
	Chime       bool
	JournalPath string

	Verbose bool
	Silent  bool
	NoColor bool
}

func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`dashwatch turns ARP broadcasts from a Dash button into button press events`)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVarP(&options.ConfigFile, "config", "c", "", "settings file (yaml)"),
	)

	flagSet.CreateGroup("capture", "Capture",
		flagSet.StringVarP(&options.Target, "target", "t", "", "hardware address of the button (aa:bb:cc:dd:ee:ff)"),
		flagSet.IntVarP(&options.Interface, "interface", "i", -1, "index of the capture device to listen on"),
		flagSet.DurationVarP(&options.Window, "window", "w", 0, "ignore repeated signals within this window (default 25s)"),
		flagSet.DurationVar(&options.ReadTimeout, "read-timeout", 0, "capture read timeout (default 1s)"),
		flagSet.BoolVarP(&options.Discovery, "discovery", "d", false, "print every ARP message seen"),
		flagSet.BoolVarP(&options.ListDevices, "list-devices", "ld", false, "list capture devices and exit"),
	)

	flagSet.CreateGroup("actions", "Actions",
		flagSet.StringVarP(&options.Database, "database", "db", "", "sqlite database for presses and push subscriptions"),
		flagSet.StringVar(&options.WebPushKey, "webpush-key", "", "private VAPID key for sending webpush notifications"),
		flagSet.IntVar(&options.DoorPin, "door-pin", 0, "GPIO pin of the door strike to toggle on a press"),
		flagSet.BoolVar(&options.Chime, "chime", false, "play a chime on a press"),
		flagSet.StringVarP(&options.JournalPath, "journal", "j", "", "append presses to this JSON lines file"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only button events, not allowed with discovery"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}
	return options
}

// Config loads the settings file and applies the command line on top.
func (o *Options) Config() (config.Config, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	cfg = o.Merge(cfg)
	if o.Silent && cfg.Discovery {
		return config.Config{}, ErrSilentDiscovery
	}
	return cfg, cfg.Validate()
}

func (o *Options) Merge(cfg config.Config) config.Config {
	if o.Target != "" {
		cfg.Target = o.Target
	}
	if o.Interface >= 0 {
		cfg.Interface = o.Interface
	}
	if o.Window != 0 {
		cfg.Window = o.Window
	}
	if o.ReadTimeout != 0 {
		cfg.ReadTimeout = o.ReadTimeout
	}
	if o.Discovery {
		cfg.Discovery = true
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.WebPushKey != "" {
		cfg.WebPush.Key = o.WebPushKey
	}
	if o.DoorPin != 0 {
		cfg.Door.Pin = o.DoorPin
	}
	if o.Chime {
		cfg.Chime = true
	}
	if o.JournalPath != "" {
		cfg.Journal.Path = o.JournalPath
	}
	return cfg
}

func (o *Options) configureLogger(discovery bool) {
	if o.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	switch {
	case o.Silent:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	case o.Verbose || discovery:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
}
