package dash

import (
	"time"

	"github.com/rs/xid"
)

// Event is one accepted button press.
type Event struct {
	ID     string
	Addr   HardwareAddr
	At     time.Time
	Record Record
}

func newEvent(addr HardwareAddr, at time.Time, rec Record) Event {
	return Event{
		ID:     xid.NewWithTime(at).String(),
		Addr:   addr,
		At:     at,
		Record: rec,
	}
}

// Handler reacts to button presses.
type Handler interface {
	HandleButtonPress(ev Event)
}

type HandlerFunc func(ev Event)

func (f HandlerFunc) HandleButtonPress(ev Event) {
	f(ev)
}

// Handlers calls each handler in order.
type Handlers []Handler

func (hs Handlers) HandleButtonPress(ev Event) {
	for _, h := range hs {
		h.HandleButtonPress(ev)
	}
}
