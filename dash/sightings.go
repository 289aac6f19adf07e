package dash

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSightings = 256

// Sightings remembers which ARP senders have already been reported in
// discovery mode, so that a new device stands out from the trace.
type Sightings struct {
	seen *lru.Cache[HardwareAddr, time.Time]
}

func NewSightings(size int) (*Sightings, error) {
	if size <= 0 {
		size = DefaultSightings
	}
	seen, err := lru.New[HardwareAddr, time.Time](size)
	if err != nil {
		return nil, err
	}
	return &Sightings{seen: seen}, nil
}

// Observe records addr and reports whether it had not been seen before.
func (s *Sightings) Observe(addr HardwareAddr, at time.Time) bool {
	known, _ := s.seen.ContainsOrAdd(addr, at)
	return !known
}

// FirstSeen returns when addr was first observed.
func (s *Sightings) FirstSeen(addr HardwareAddr) (time.Time, bool) {
	return s.seen.Peek(addr)
}

func (s *Sightings) Len() int {
	return s.seen.Len()
}
