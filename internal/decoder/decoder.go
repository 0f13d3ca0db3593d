// Package decoder turns captured frames into DecodedPacket records.
package decoder

import (
	"gonetcap/internal/models"
	"strconv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Decoder slices frames into link, network and transport headers.
// It reuses its layer storage between calls and is not safe for concurrent use;
// each capture worker owns its own Decoder.
type Decoder struct {
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType

	eth     layers.Ethernet
	sll     layers.LinuxSLL
	loop    layers.Loopback
	vlan    layers.Dot1Q
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	payload gopacket.Payload
}

// New creates a Decoder for frames of the given link type.
// Frames of an unsupported link type are always skipped.
func New(link layers.LinkType) *Decoder {
	d := &Decoder{decoded: make([]gopacket.LayerType, 0, 8)}

	first, ok := firstLayer(link)
	if !ok {
		return d
	}

	d.parser = gopacket.NewDecodingLayerParser(first,
		&d.eth, &d.sll, &d.loop, &d.vlan,
		&d.ip4, &d.ip6,
		&d.tcp, &d.udp,
		&d.payload,
	)
	// Stop quietly at the first layer we don't slice (ARP, ICMP, DNS, TLS...).
	d.parser.IgnoreUnsupported = true
	return d
}

// Supported reports whether frames of this link type can be decoded.
func Supported(link layers.LinkType) bool {
	_, ok := firstLayer(link)
	return ok
}

func firstLayer(link layers.LinkType) (gopacket.LayerType, bool) {
	switch link {
	case layers.LinkTypeEthernet:
		return layers.LayerTypeEthernet, true
	case layers.LinkTypeLinuxSLL:
		return layers.LayerTypeLinuxSLL, true
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		return layers.LayerTypeLoopback, true
	default:
		return gopacket.LayerTypeZero, false
	}
}

// Decode converts one frame. The second return value is false when the frame
// must be skipped: malformed or truncated headers, or an unsupported link type.
// The returned packet never references frame.Data.
func (d *Decoder) Decode(frame models.Frame) (models.DecodedPacket, bool) {
	if d.parser == nil {
		return models.DecodedPacket{}, false
	}
	if err := d.parser.DecodeLayers(frame.Data, &d.decoded); err != nil {
		return models.DecodedPacket{}, false
	}
	if len(d.decoded) == 0 {
		return models.DecodedPacket{}, false
	}

	pkt := models.DecodedPacket{
		Timestamp: frame.Timestamp,
		Length:    len(frame.Data),
	}

	// Only the outermost network and transport headers are recorded, so a
	// tunnelled packet never fills both address pairs.
	var haveLink, haveNet, haveTransport bool
	for _, typ := range d.decoded {
		switch typ {
		case layers.LayerTypeEthernet:
			if !haveLink {
				pkt.Link = gopacket.LayerString(&d.eth)
				haveLink = true
			}
		case layers.LayerTypeLinuxSLL:
			if !haveLink {
				pkt.Link = gopacket.LayerString(&d.sll)
				haveLink = true
			}
		case layers.LayerTypeLoopback:
			if !haveLink {
				pkt.Link = gopacket.LayerString(&d.loop)
				haveLink = true
			}
		case layers.LayerTypeIPv4:
			if !haveNet {
				pkt.Addresses.IPv4Src = d.ip4.SrcIP.String()
				pkt.Addresses.IPv4Dst = d.ip4.DstIP.String()
				haveNet = true
			}
		case layers.LayerTypeIPv6:
			if !haveNet {
				pkt.Addresses.IPv6Src = d.ip6.SrcIP.String()
				pkt.Addresses.IPv6Dst = d.ip6.DstIP.String()
				haveNet = true
			}
		case layers.LayerTypeTCP:
			if !haveTransport {
				pkt.Transport = models.TransportInfo{
					Kind:    models.TransportTCP,
					SrcPort: strconv.Itoa(int(d.tcp.SrcPort)),
					DstPort: strconv.Itoa(int(d.tcp.DstPort)),
				}
				pkt.TransportDetail = gopacket.LayerString(&d.tcp)
				pkt.Payload = RenderPayload(d.tcp.Payload)
				haveTransport = true
			}
		case layers.LayerTypeUDP:
			if !haveTransport {
				pkt.Transport = models.TransportInfo{
					Kind:    models.TransportUDP,
					SrcPort: strconv.Itoa(int(d.udp.SrcPort)),
					DstPort: strconv.Itoa(int(d.udp.DstPort)),
				}
				pkt.TransportDetail = gopacket.LayerString(&d.udp)
				pkt.Payload = RenderPayload(d.udp.Payload)
				haveTransport = true
			}
		}
	}

	return pkt, true
}

// Decode is a one-shot helper that decodes a single frame with a fresh Decoder.
func Decode(link layers.LinkType, frame models.Frame) (models.DecodedPacket, bool) {
	return New(link).Decode(frame)
}
