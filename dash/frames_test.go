package dash

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

var (
	buttonMAC = net.HardwareAddr{0x68, 0x37, 0xe9, 0x99, 0xde, 0x58}
	otherMAC  = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

func arpLayer(sender net.HardwareAddr) *layers.ARP {
	return &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   sender,
		SourceProtAddress: []byte{192, 168, 1, 20},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{192, 168, 1, 1},
	}
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

// arpFrame builds an Ethernet broadcast carrying an ARP request from sender.
func arpFrame(t *testing.T, sender net.HardwareAddr) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       sender,
		DstMAC:       broadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	return serialize(t, eth, arpLayer(sender))
}

func vlanARPFrame(t *testing.T, sender net.HardwareAddr) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       sender,
		DstMAC:       broadcast,
		EthernetType: layers.EthernetTypeDot1Q,
	}
	tag := &layers.Dot1Q{
		VLANIdentifier: 10,
		Type:           layers.EthernetTypeARP,
	}
	return serialize(t, eth, tag, arpLayer(sender))
}

// sllARPFrame builds a Linux cooked capture header in front of an ARP message.
func sllARPFrame(t *testing.T, sender net.HardwareAddr) []byte {
	header := make([]byte, 16)
	binary.BigEndian.PutUint16(header[0:2], uint16(layers.LinuxSLLPacketTypeBroadcast))
	binary.BigEndian.PutUint16(header[2:4], 1)
	binary.BigEndian.PutUint16(header[4:6], 6)
	copy(header[6:12], sender)
	binary.BigEndian.PutUint16(header[14:16], uint16(layers.EthernetTypeARP))
	return append(header, serialize(t, arpLayer(sender))...)
}

func ipv4Frame(t *testing.T, sender net.HardwareAddr) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       sender,
		DstMAC:       broadcast,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 168, 1, 20},
		DstIP:    net.IP{192, 168, 1, 1},
	}
	return serialize(t, eth, ip)
}
