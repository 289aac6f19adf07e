package main

import (
	"github.com/hatstand/dashwatch/chime"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
)

func main() {
	var times int
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription("play the press chime to check the audio output")
	flagSet.IntVarP(&times, "times", "n", 1, "how many times to play")
	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	c, err := chime.Open(nil)
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	defer c.Close()

	for i := 0; i < times; i++ {
		gologger.Info().Msgf("DING-DONG!")
		if err := c.Play(); err != nil {
			gologger.Error().Msgf("%s", err)
			return
		}
	}
}
