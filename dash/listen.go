package dash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/projectdiscovery/gologger"
)

// ErrReadTimeout is returned by a Source when no frame arrived within its
// read timeout. Run treats it as a chance to check for cancellation.
var ErrReadTimeout = errors.New("dash: read timeout")

// Source delivers captured frames. *capture.Handle is the live
// implementation.
type Source interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

type Options struct {
	Target    Target
	Window    time.Duration
	Discovery bool
	Logger    *gologger.Logger
	// Now is used when a frame carries no capture timestamp.
	Now func() time.Time
}

// Listener turns captured frames into button presses.
type Listener struct {
	target    Target
	discovery bool
	log       *gologger.Logger
	now       func() time.Time
	debouncer *Debouncer
	sightings *Sightings

	mu         sync.Mutex
	classifier *Classifier
}

func NewListener(opts Options) (*Listener, error) {
	if opts.Window <= 0 {
		return nil, fmt.Errorf("dash: debounce window must be positive, got %s", opts.Window)
	}
	l := &Listener{
		target:     opts.Target,
		discovery:  opts.Discovery,
		log:        opts.Logger,
		now:        opts.Now,
		debouncer:  NewDebouncer(opts.Window),
		classifier: NewClassifier(),
	}
	if l.log == nil {
		l.log = gologger.DefaultLogger
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.discovery {
		s, err := NewSightings(DefaultSightings)
		if err != nil {
			return nil, err
		}
		l.sightings = s
	}
	return l, nil
}

func (l *Listener) Debouncer() *Debouncer {
	return l.debouncer
}

// HandleFrame classifies one frame and runs it through the matcher and the
// debouncer. It returns the press when the frame starts a new one.
func (l *Listener) HandleFrame(data []byte, linkType layers.LinkType, ts time.Time) (Event, bool) {
	l.mu.Lock()
	rec, ok := l.classifier.Classify(data, linkType)
	l.mu.Unlock()
	if !ok {
		return Event{}, false
	}
	if ts.IsZero() {
		ts = l.now()
	}
	if l.discovery {
		l.trace(rec, ts)
	}
	if !Matches(rec, l.target) {
		return Event{}, false
	}

	addr, _ := l.target.Addr()
	l.log.Verbose().Str("mac", addr.String()).Msgf("dash ARP at %s", ts.Format(time.RFC3339))
	if !l.debouncer.Accept(ts) {
		return Event{}, false
	}
	ev := newEvent(addr, ts, rec)
	l.log.Info().Str("id", ev.ID).Str("mac", addr.String()).Msg("dash button event")
	return ev, true
}

func (l *Listener) trace(rec Record, ts time.Time) {
	l.log.Verbose().Msg(rec.String())
	sender, ok := HardwareAddrFrom(rec.SenderHardwareAddr)
	if ok && l.sightings.Observe(sender, ts) {
		l.log.Info().Str("mac", sender.String()).Str("ip", rec.SenderProtocolAddr.String()).Msg("new ARP sender")
	}
}

// Run reads frames from src until ctx is cancelled or src is exhausted and
// sends every accepted press to out.
func (l *Listener) Run(ctx context.Context, src Source, out chan<- Event) error {
	linkType := src.LinkType()
	for {
		if ctx.Err() != nil {
			return nil
		}
		data, ci, err := src.ReadPacketData()
		switch {
		case err == nil:
		case errors.Is(err, ErrReadTimeout):
			continue
		case errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("dash: read packet: %w", err)
		}

		ev, ok := l.HandleFrame(data, linkType, ci.Timestamp)
		if !ok {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

// Dispatch calls h for every event received on in until in is closed or ctx
// is cancelled.
func Dispatch(ctx context.Context, in <-chan Event, h Handler) error {
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			h.HandleButtonPress(ev)
		case <-ctx.Done():
			return nil
		}
	}
}
