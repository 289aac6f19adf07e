package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hatstand/dashwatch/capture"
	"github.com/hatstand/dashwatch/chime"
	"github.com/hatstand/dashwatch/config"
	"github.com/hatstand/dashwatch/dash"
	"github.com/hatstand/dashwatch/door"
	"github.com/hatstand/dashwatch/journal"
	"github.com/hatstand/dashwatch/model"
	"github.com/hatstand/dashwatch/webpush"
	"github.com/projectdiscovery/gologger"
	"golang.org/x/sync/errgroup"
)

// eventBuffer lets slow actions fall behind without stalling capture.
const eventBuffer = 16

func main() {
	options := ParseOptions()
	options.configureLogger(false)

	cfg, err := options.Config()
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	options.configureLogger(cfg.Discovery)

	devices, err := capture.Devices()
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	gologger.Print().Msgf("The following devices are available on this machine:")
	for _, dev := range devices {
		gologger.Print().Msgf("%d: %s", dev.Index, dev)
	}
	if options.ListDevices {
		return
	}

	dev, err := capture.Select(devices, cfg.Interface)
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	listenerOpts, err := cfg.ListenerOptions()
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	listener, err := dash.NewListener(listenerOpts)
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	if _, ok := listenerOpts.Target.Addr(); !ok {
		gologger.Warning().Msg("No target address configured, button presses will not be detected")
	}

	handlers, closeActions, err := openActions(cfg, options.Silent)
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}

	handle, err := capture.Open(dev, cfg.CaptureOptions())
	if err != nil {
		closeActions()
		gologger.Fatal().Msgf("%s", err)
	}

	gologger.Info().Msgf("Listening on %d: %s for %s, press Ctrl+C to stop...", cfg.Interface, dev, listenerOpts.Target)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, listener, handle, handlers)
	stop()
	handle.Close()
	closeActions()
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
}

// run captures until ctx is done. Presses are handed to h on a separate
// goroutine.
func run(ctx context.Context, listener *dash.Listener, src dash.Source, h dash.Handler) error {
	g, ctx := errgroup.WithContext(ctx)
	events := make(chan dash.Event, eventBuffer)
	g.Go(func() error {
		defer close(events)
		return listener.Run(ctx, src, events)
	})
	g.Go(func() error {
		// Drain what was captured before the stop.
		return dash.Dispatch(context.Background(), events, h)
	})
	return g.Wait()
}

// openActions builds the configured press handlers. The returned func
// releases them.
func openActions(cfg config.Config, silent bool) (dash.Handlers, func(), error) {
	var handlers dash.Handlers
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (dash.Handlers, func(), error) {
		closeAll()
		return nil, nil, err
	}

	if silent {
		handlers = append(handlers, dash.HandlerFunc(func(ev dash.Event) {
			gologger.Silent().Msgf("%s %s %s", ev.At.Format(time.RFC3339), ev.Addr, ev.ID)
		}))
	}

	if cfg.Journal.Path != "" {
		j := journal.Open(cfg.Journal.Path, journal.Rotation{
			MaxSizeMB:  cfg.Journal.MaxSizeMB,
			MaxBackups: cfg.Journal.MaxBackups,
			MaxAgeDays: cfg.Journal.MaxAgeDays,
		}, nil)
		handlers = append(handlers, j)
		closers = append(closers, func() { j.Close() })
	}

	if cfg.Database != "" {
		db, err := model.OpenDatabase(cfg.Database)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { db.Close() })
		handlers = append(handlers, dash.HandlerFunc(func(ev dash.Event) {
			if err := db.RecordPress(ev); err != nil {
				gologger.Warning().Msgf("Error recording press: %s", err)
			}
		}))
		if cfg.WebPush.Key != "" {
			handlers = append(handlers, webpush.NewNotifier(db, webpush.Options{
				Key:        cfg.WebPush.Key,
				Subscriber: cfg.WebPush.Subscriber,
				TTL:        cfg.WebPush.TTL,
				Timeout:    cfg.WebPush.Timeout,
			}, nil))
		}
	}

	if cfg.Door.Pin > 0 {
		if err := door.Open(); err != nil {
			return fail(err)
		}
		strike := door.NewStrike(cfg.Door.Pin, cfg.Door.Hold, nil)
		handlers = append(handlers, strike)
		closers = append(closers, func() {
			strike.Wait()
			door.Close()
		})
	}

	if cfg.Chime {
		c, err := chime.Open(nil)
		if err != nil {
			return fail(err)
		}
		handlers = append(handlers, c)
		closers = append(closers, func() { c.Close() })
	}

	return handlers, closeAll, nil
}
