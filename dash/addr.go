package dash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidAddr is returned when a string does not describe a 6 byte
// hardware address.
var ErrInvalidAddr = errors.New("dash: invalid hardware address")

// HardwareAddr is a 48 bit link-layer address. It is a value type and can be
// compared with == or used as a map key.
type HardwareAddr [6]byte

// ParseHardwareAddr accepts "68:37:e9:99:de:58", "68-37-E9-99-DE-58",
// "6837.e999.de58" and "6837E999DE58".
func ParseHardwareAddr(s string) (HardwareAddr, error) {
	var addr HardwareAddr
	bare := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if len(bare) != 2*len(addr) {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
	}
	if _, err := hex.Decode(addr[:], []byte(bare)); err != nil {
		return addr, fmt.Errorf("%w: %q: %w", ErrInvalidAddr, s, err)
	}
	return addr, nil
}

// HardwareAddrFrom copies b into a HardwareAddr. It reports false unless b is
// exactly 6 bytes long.
func HardwareAddrFrom(b []byte) (HardwareAddr, bool) {
	var addr HardwareAddr
	if len(b) != len(addr) {
		return addr, false
	}
	copy(addr[:], b)
	return addr, true
}

func (a HardwareAddr) String() string {
	return net.HardwareAddr(a[:]).String()
}

// Target is the configured button address. The zero value matches nothing.
type Target struct {
	addr HardwareAddr
	set  bool
}

// ParseTarget parses a configured address. A blank string yields a disabled
// target and no error.
func ParseTarget(s string) (Target, error) {
	if strings.TrimSpace(s) == "" {
		return Target{}, nil
	}
	addr, err := ParseHardwareAddr(s)
	if err != nil {
		return Target{}, err
	}
	return Target{addr: addr, set: true}, nil
}

// TargetOf returns an enabled target for addr.
func TargetOf(addr HardwareAddr) Target {
	return Target{addr: addr, set: true}
}

// Addr returns the target address and whether one is configured.
func (t Target) Addr() (HardwareAddr, bool) {
	return t.addr, t.set
}

func (t Target) String() string {
	if !t.set {
		return "none"
	}
	return t.addr.String()
}

// Matches reports whether the sender of rec is the target. It is always false
// when no target is configured.
func Matches(rec Record, target Target) bool {
	if !target.set {
		return false
	}
	sender, ok := HardwareAddrFrom(rec.SenderHardwareAddr)
	return ok && sender == target.addr
}
