package dash

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// maxDepth bounds the layer walk. ARP never sits deeper than a couple of
// VLAN tags below the link layer.
const maxDepth = 8

// Record is an ARP message copied out of a captured frame.
type Record struct {
	Operation          uint16
	SenderHardwareAddr net.HardwareAddr
	SenderProtocolAddr net.IP
	TargetHardwareAddr net.HardwareAddr
	TargetProtocolAddr net.IP
}

func (r Record) String() string {
	op := fmt.Sprintf("op %d", r.Operation)
	switch r.Operation {
	case layers.ARPRequest:
		op = "request"
	case layers.ARPReply:
		op = "reply"
	}
	return fmt.Sprintf("ARP %s %s (%s) -> %s (%s)", op,
		r.SenderHardwareAddr, r.SenderProtocolAddr,
		r.TargetHardwareAddr, r.TargetProtocolAddr)
}

// Classifier walks the layers of a frame looking for an ARP message. It keeps
// decoder instances between calls, so it must not be shared between
// goroutines.
type Classifier struct {
	ethernet layers.Ethernet
	dot1q    layers.Dot1Q
	sll      layers.LinuxSLL
	arp      layers.ARP
}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) decoder(t gopacket.LayerType) gopacket.DecodingLayer {
	switch t {
	case layers.LayerTypeEthernet:
		return &c.ethernet
	case layers.LayerTypeDot1Q:
		return &c.dot1q
	case layers.LayerTypeLinuxSLL:
		return &c.sll
	case layers.LayerTypeARP:
		return &c.arp
	}
	return nil
}

// Classify returns the first ARP message found in data, decoded starting at
// the layer that linkType maps to. Unknown link types, unknown payloads and
// malformed or truncated frames all yield false.
func (c *Classifier) Classify(data []byte, linkType layers.LinkType) (rec Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			rec, ok = Record{}, false
		}
	}()

	next := firstLayer(linkType)
	for depth := 0; depth < maxDepth; depth++ {
		dec := c.decoder(next)
		if dec == nil {
			return Record{}, false
		}
		if err := dec.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
			return Record{}, false
		}
		if next == layers.LayerTypeARP {
			return recordFrom(&c.arp), true
		}
		next = dec.NextLayerType()
		data = dec.LayerPayload()
	}
	return Record{}, false
}

// firstLayer maps a capture link type to the layer its frames start with.
// LinkType.LayerType is not usable here: the link type table only carries
// decode funcs, so it reports Unknown for Ethernet.
func firstLayer(linkType layers.LinkType) gopacket.LayerType {
	switch linkType {
	case layers.LinkTypeEthernet:
		return layers.LayerTypeEthernet
	case layers.LinkTypeLinuxSLL:
		return layers.LayerTypeLinuxSLL
	}
	return gopacket.LayerTypeZero
}

// Classify is a convenience wrapper using a fresh Classifier.
func Classify(data []byte, linkType layers.LinkType) (Record, bool) {
	return NewClassifier().Classify(data, linkType)
}

func recordFrom(arp *layers.ARP) Record {
	return Record{
		Operation:          arp.Operation,
		SenderHardwareAddr: clone(arp.SourceHwAddress),
		SenderProtocolAddr: clone(arp.SourceProtAddress),
		TargetHardwareAddr: clone(arp.DstHwAddress),
		TargetProtocolAddr: clone(arp.DstProtAddress),
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
