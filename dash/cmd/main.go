// Command cmd prints every ARP message seen on a capture device. Use it to
// find the hardware address of a new button.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/hatstand/dashwatch/capture"
	"github.com/hatstand/dashwatch/dash"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
)

func main() {
	var index int
	var list bool
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription("print ARP traffic to discover button addresses")
	flagSet.IntVarP(&index, "interface", "i", 0, "index of the capture device")
	flagSet.BoolVarP(&list, "list-devices", "ld", false, "list capture devices and exit")
	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}
	gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)

	devices, err := capture.Devices()
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	if list {
		for _, dev := range devices {
			gologger.Print().Msgf("%d: %s", dev.Index, dev)
		}
		return
	}
	dev, err := capture.Select(devices, index)
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	handle, err := capture.Open(dev, capture.DefaultOptions())
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	defer handle.Close()

	// No target: nothing is ever accepted, every record is traced.
	listener, err := dash.NewListener(dash.Options{Window: dash.DefaultWindow, Discovery: true})
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}

	gologger.Info().Msgf("Listening for ARP packets on %s", dev)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := listener.Run(ctx, handle, make(chan dash.Event)); err != nil {
		gologger.Error().Msgf("%s", err)
	}
}
