package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/hatstand/dashwatch/dash"
)

const (
	DefaultSnapLen     = 1600
	DefaultPromiscuous = true
	// DefaultReadTimeout bounds each read so the capture loop notices a stop
	// request within a second.
	DefaultReadTimeout = time.Second
	// DefaultFilter also lets VLAN tagged ARP through.
	DefaultFilter = "arp or (vlan and arp)"
)

var (
	ErrNoDevices    = errors.New("capture: no capture devices found")
	ErrInvalidIndex = errors.New("capture: invalid interface index")
	ErrOpenFailed   = errors.New("capture: could not open interface")
)

// Device is a capture capable interface as reported by libpcap.
type Device struct {
	Index       int
	Name        string
	Description string
	Addresses   []string
}

func (d Device) String() string {
	if d.Description == "" {
		return d.Name
	}
	return fmt.Sprintf("%s (%s)", d.Description, d.Name)
}

// Devices lists the interfaces libpcap can open, in libpcap's order.
func Devices() ([]Device, error) {
	ifaces, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("capture: list devices: %w", err)
	}
	return devicesFrom(ifaces)
}

func devicesFrom(ifaces []pcap.Interface) ([]Device, error) {
	if len(ifaces) == 0 {
		return nil, ErrNoDevices
	}
	devices := make([]Device, 0, len(ifaces))
	for i, iface := range ifaces {
		d := Device{Index: i, Name: iface.Name, Description: iface.Description}
		for _, addr := range iface.Addresses {
			d.Addresses = append(d.Addresses, addr.IP.String())
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Select returns the device at index.
func Select(devices []Device, index int) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoDevices
	}
	if index < 0 || index >= len(devices) {
		return Device{}, fmt.Errorf("%w: %d, have %d devices", ErrInvalidIndex, index, len(devices))
	}
	return devices[index], nil
}

type Options struct {
	SnapLen     int
	Promiscuous bool
	ReadTimeout time.Duration
	Filter      string
}

func DefaultOptions() Options {
	return Options{
		SnapLen:     DefaultSnapLen,
		Promiscuous: DefaultPromiscuous,
		ReadTimeout: DefaultReadTimeout,
		Filter:      DefaultFilter,
	}
}

type reader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
	Close()
}

// Handle is an open live capture. It implements dash.Source.
type Handle struct {
	Device Device
	r      reader
}

var _ dash.Source = (*Handle)(nil)

// Open starts a live capture on dev.
func Open(dev Device, opts Options) (*Handle, error) {
	if opts.SnapLen <= 0 {
		opts.SnapLen = DefaultSnapLen
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	handle, err := pcap.OpenLive(dev.Name, int32(opts.SnapLen), opts.Promiscuous, opts.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenFailed, dev.Name, err)
	}
	if opts.Filter != "" {
		if err := handle.SetBPFFilter(opts.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("%w %s: filter %q: %w", ErrOpenFailed, dev.Name, opts.Filter, err)
		}
	}
	return &Handle{Device: dev, r: handle}, nil
}

func (h *Handle) LinkType() layers.LinkType {
	return h.r.LinkType()
}

// ReadPacketData reports an expired read timeout as dash.ErrReadTimeout.
func (h *Handle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := h.r.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) {
		return nil, ci, dash.ErrReadTimeout
	}
	return data, ci, err
}

func (h *Handle) Close() {
	h.r.Close()
}
