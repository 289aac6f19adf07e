package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hatstand/dashwatch/capture"
	"github.com/hatstand/dashwatch/dash"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

var (
	ErrLoadFailed    = errors.New("config: load failed")
	ErrParseFailed   = errors.New("config: parse failed")
	ErrInvalidTarget = errors.New("config: invalid target address")
	ErrInvalidWindow = errors.New("config: debounce window must be positive")
	ErrInvalidValue  = errors.New("config: invalid value")
)

type WebPush struct {
	Key        string        `koanf:"key"`
	Subscriber string        `koanf:"subscriber"`
	TTL        int           `koanf:"ttl"`
	Timeout    time.Duration `koanf:"timeout"`
}

type Door struct {
	Pin  int           `koanf:"pin"`
	Hold time.Duration `koanf:"hold"`
}

type Journal struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max-size-mb"`
	MaxBackups int    `koanf:"max-backups"`
	MaxAgeDays int    `koanf:"max-age-days"`
}

// Config is the settings of one run. It is built once at startup and passed
// by value.
type Config struct {
	Target      string        `koanf:"target"`
	Interface   int           `koanf:"interface"`
	Window      time.Duration `koanf:"window"`
	Discovery   bool          `koanf:"discovery"`
	ReadTimeout time.Duration `koanf:"read-timeout"`
	SnapLen     int           `koanf:"snaplen"`
	Promiscuous bool          `koanf:"promiscuous"`
	Database    string        `koanf:"database"`
	Chime       bool          `koanf:"chime"`
	WebPush     WebPush       `koanf:"webpush"`
	Door        Door          `koanf:"door"`
	Journal     Journal       `koanf:"journal"`
}

func Default() Config {
	return Config{
		Window:      dash.DefaultWindow,
		ReadTimeout: capture.DefaultReadTimeout,
		SnapLen:     capture.DefaultSnapLen,
		Promiscuous: capture.DefaultPromiscuous,
		WebPush: WebPush{
			TTL:     60,
			Timeout: 10 * time.Second,
		},
		Door: Door{
			Hold: 5 * time.Second,
		},
		Journal: Journal{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads a YAML settings file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return Parse(data)
}

// Parse decodes YAML settings on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				durationNeedsUnit,
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc()),
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, conf); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationNeedsUnit rejects bare numbers for durations. A weak decode would
// read "window: 25" as 25ns.
func durationNeedsUnit(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil, fmt.Errorf("%w: duration %v needs a unit, e.g. %vs", ErrInvalidValue, data, data)
	}
	return data, nil
}

// Validate checks values that would otherwise fail late. A blank target is
// valid and disables matching.
func (c Config) Validate() error {
	if _, err := c.ParsedTarget(); err != nil {
		return err
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, c.Window)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read-timeout %s", ErrInvalidValue, c.ReadTimeout)
	}
	if c.Interface < 0 {
		return fmt.Errorf("%w: interface %d", ErrInvalidValue, c.Interface)
	}
	if c.SnapLen <= 0 {
		return fmt.Errorf("%w: snaplen %d", ErrInvalidValue, c.SnapLen)
	}
	if c.Door.Pin < 0 || (c.Door.Pin > 0 && c.Door.Hold <= 0) {
		return fmt.Errorf("%w: door pin %d hold %s", ErrInvalidValue, c.Door.Pin, c.Door.Hold)
	}
	if c.WebPush.TTL < 0 {
		return fmt.Errorf("%w: webpush ttl %d", ErrInvalidValue, c.WebPush.TTL)
	}
	if c.WebPush.Timeout <= 0 {
		return fmt.Errorf("%w: webpush timeout %s", ErrInvalidValue, c.WebPush.Timeout)
	}
	if c.WebPush.Key != "" && c.WebPush.Subscriber == "" {
		return fmt.Errorf("%w: webpush subscriber is required with a key", ErrInvalidValue)
	}
	if c.WebPush.Key != "" && c.Database == "" {
		return fmt.Errorf("%w: webpush needs a database for subscriptions", ErrInvalidValue)
	}
	return nil
}

func (c Config) ParsedTarget() (dash.Target, error) {
	t, err := dash.ParseTarget(c.Target)
	if err != nil {
		return dash.Target{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	return t, nil
}

func (c Config) CaptureOptions() capture.Options {
	return capture.Options{
		SnapLen:     c.SnapLen,
		Promiscuous: c.Promiscuous,
		ReadTimeout: c.ReadTimeout,
		Filter:      capture.DefaultFilter,
	}
}

func (c Config) ListenerOptions() (dash.Options, error) {
	target, err := c.ParsedTarget()
	if err != nil {
		return dash.Options{}, err
	}
	return dash.Options{
		Target:    target,
		Window:    c.Window,
		Discovery: c.Discovery,
	}, nil
}
