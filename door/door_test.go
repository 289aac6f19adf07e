package door

import (
	"sync"
	"testing"
	"time"

	"github.com/hatstand/dashwatch/dash"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type recordingPin struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPin) record(c string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}

func (p *recordingPin) Output() { p.record("output") }
func (p *recordingPin) High()   { p.record("high") }
func (p *recordingPin) Low()    { p.record("low") }

type discard struct{}

func (discard) Write(data []byte, level levels.Level) {}

func quietLogger() *gologger.Logger {
	l := &gologger.Logger{}
	l.SetMaxLevel(levels.LevelInfo)
	l.SetFormatter(formatter.NewCLI(true))
	l.SetWriter(discard{})
	return l
}

func TestStrikePulses(t *testing.T) {
	defer goleak.VerifyNone(t)

	pin := &recordingPin{}
	s := newStrike(pin, 2*time.Second, quietLogger())
	var waited []time.Duration
	var mu sync.Mutex
	s.wait = func(d time.Duration) {
		mu.Lock()
		waited = append(waited, d)
		mu.Unlock()
	}

	s.HandleButtonPress(dash.Event{ID: "1"})
	s.HandleButtonPress(dash.Event{ID: "2"})
	s.Wait()

	// Pulses never overlap.
	assert.Equal(t, []string{"output", "high", "low", "output", "high", "low"}, pin.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, waited)
}

func TestStrikeDefaultHold(t *testing.T) {
	s := newStrike(&recordingPin{}, 0, nil)
	assert.Equal(t, DefaultHold, s.hold)
}
