package door

import (
	"sync"
	"time"

	"github.com/hatstand/dashwatch/dash"
	"github.com/projectdiscovery/gologger"
	"github.com/stianeikeland/go-rpio"
)

const DefaultHold = 5 * time.Second

// Pin is the part of rpio.Pin the strike drives.
type Pin interface {
	Output()
	High()
	Low()
}

// Strike holds a door strike relay open for a while on every press.
type Strike struct {
	lock sync.Mutex
	pin  Pin
	hold time.Duration
	log  *gologger.Logger
	wait func(time.Duration)
	wg   sync.WaitGroup
}

// Open maps the GPIO registers. Close must be called to release them.
func Open() error {
	return rpio.Open()
}

func Close() error {
	return rpio.Close()
}

// NewStrike drives the BCM numbered GPIO pin.
func NewStrike(pin int, hold time.Duration, log *gologger.Logger) *Strike {
	return newStrike(rpio.Pin(pin), hold, log)
}

func newStrike(pin Pin, hold time.Duration, log *gologger.Logger) *Strike {
	if hold <= 0 {
		hold = DefaultHold
	}
	if log == nil {
		log = gologger.DefaultLogger
	}
	return &Strike{pin: pin, hold: hold, log: log, wait: time.Sleep}
}

// Toggle raises the pin for the hold duration in the background. Presses
// during a pulse queue behind it.
func (s *Strike) Toggle() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.lock.Lock()
		defer s.lock.Unlock()
		s.log.Info().Msgf("Toggling door for %s", s.hold)
		s.pin.Output()
		s.pin.High()
		defer s.pin.Low()
		s.wait(s.hold)
	}()
}

// Wait blocks until pending pulses have finished.
func (s *Strike) Wait() {
	s.wg.Wait()
}

func (s *Strike) HandleButtonPress(ev dash.Event) {
	s.Toggle()
}
