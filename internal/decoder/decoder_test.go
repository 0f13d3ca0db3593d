package decoder

import (
	"gonetcap/internal/models"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func ipv4TCPFrame(t *testing.T, payload []byte) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{93, 184, 216, 34},
	}
	tcp := &layers.TCP{SrcPort: 51000, DstPort: 8080, Seq: 1, ACK: true, PSH: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

func ipv6UDPFrame(t *testing.T, payload []byte) []byte {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      net.ParseIP("2001:db8::1"),
		DstIP:      net.ParseIP("2001:db8::2"),
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 9999}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, udp, gopacket.Payload(payload))
}

func TestDecodeIPv4TCP(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	data := ipv4TCPFrame(t, []byte("GET /"))

	pkt, ok := Decode(layers.LinkTypeEthernet, models.Frame{Data: data, Timestamp: ts})
	require.True(t, ok)

	assert.Equal(t, "192.168.1.10", pkt.Addresses.IPv4Src)
	assert.Equal(t, "93.184.216.34", pkt.Addresses.IPv4Dst)
	assert.Empty(t, pkt.Addresses.IPv6Src)
	assert.Empty(t, pkt.Addresses.IPv6Dst)

	assert.Equal(t, models.TransportTCP, pkt.Transport.Kind)
	assert.Equal(t, "TCP", pkt.Transport.Protocol())
	assert.Equal(t, "51000", pkt.Transport.SrcPort)
	assert.Equal(t, "8080", pkt.Transport.DstPort)

	assert.Equal(t, "47 45 54 20 2f", pkt.Payload.Hex)
	assert.Equal(t, "GET /", pkt.Payload.ASCII)

	assert.True(t, strings.HasPrefix(pkt.Link, "Ethernet"), pkt.Link)
	assert.True(t, strings.HasPrefix(pkt.TransportDetail, "TCP"), pkt.TransportDetail)
	assert.Equal(t, len(data), pkt.Length)
	assert.Equal(t, ts, pkt.Timestamp)
}

func TestDecodeIPv6UDP(t *testing.T) {
	pkt, ok := Decode(layers.LinkTypeEthernet, models.Frame{Data: ipv6UDPFrame(t, []byte{0x00, 0x41, 0xff})})
	require.True(t, ok)

	assert.Empty(t, pkt.Addresses.IPv4Src)
	assert.Empty(t, pkt.Addresses.IPv4Dst)
	assert.Equal(t, "2001:db8::1", pkt.Addresses.IPv6Src)
	assert.Equal(t, "2001:db8::2", pkt.Addresses.IPv6Dst)

	assert.Equal(t, models.TransportUDP, pkt.Transport.Kind)
	assert.Equal(t, "40000", pkt.Transport.SrcPort)
	assert.Equal(t, "9999", pkt.Transport.DstPort)
	assert.Equal(t, "00 41 ff", pkt.Payload.Hex)
	assert.Equal(t, ".A.", pkt.Payload.ASCII)
}

func TestDecodeEmptyTransportPayload(t *testing.T) {
	pkt, ok := Decode(layers.LinkTypeEthernet, models.Frame{Data: ipv4TCPFrame(t, nil)})
	require.True(t, ok)

	assert.Equal(t, models.EmptyPayload, pkt.Payload.Hex)
	assert.Equal(t, models.EmptyPayload, pkt.Payload.ASCII)
}

func TestDecodeUnrecognizedTransportIsKept(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1}
	data := serialize(t, eth, ip, icmp, gopacket.Payload([]byte("ping")))

	pkt, ok := Decode(layers.LinkTypeEthernet, models.Frame{Data: data})
	require.True(t, ok)

	assert.Equal(t, "10.0.0.1", pkt.Addresses.IPv4Src)
	assert.Equal(t, models.TransportOther, pkt.Transport.Kind)
	assert.Equal(t, models.TransportInfo{}, pkt.Transport)
	assert.Equal(t, models.PayloadView{}, pkt.Payload)
	assert.Empty(t, pkt.TransportDetail)
}

func TestDecodeSkipsMalformedFrames(t *testing.T) {
	full := ipv4TCPFrame(t, []byte("hello"))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty frame", nil},
		{"shorter than ethernet header", full[:10]},
		{"truncated ipv4 header", full[:14+8]},
		{"truncated tcp header", full[:14+20+6]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Decode(layers.LinkTypeEthernet, models.Frame{Data: tt.data})
			assert.False(t, ok)
		})
	}
}

func TestDecodeUnsupportedLinkType(t *testing.T) {
	assert.False(t, Supported(layers.LinkTypeIEEE802_11))

	_, ok := Decode(layers.LinkTypeIEEE802_11, models.Frame{Data: ipv4TCPFrame(t, []byte("x"))})
	assert.False(t, ok)
}

func TestDecodeVLANTaggedFrame(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeDot1Q}
	vlan := &layers.Dot1Q{VLANIdentifier: 42, Type: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{172, 16, 0, 1},
		DstIP:    net.IP{172, 16, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 5001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, eth, vlan, ip, udp, gopacket.Payload([]byte{1}))

	pkt, ok := Decode(layers.LinkTypeEthernet, models.Frame{Data: data})
	require.True(t, ok)
	assert.Equal(t, "172.16.0.1", pkt.Addresses.IPv4Src)
	assert.Equal(t, "UDP", pkt.Transport.Protocol())
	assert.Equal(t, "01", pkt.Payload.Hex)
}

func TestDecoderReuseDoesNotLeakState(t *testing.T) {
	d := New(layers.LinkTypeEthernet)

	first, ok := d.Decode(models.Frame{Data: ipv4TCPFrame(t, []byte("abc"))})
	require.True(t, ok)
	second, ok := d.Decode(models.Frame{Data: ipv6UDPFrame(t, nil)})
	require.True(t, ok)

	assert.Equal(t, "abc", first.Payload.ASCII)
	assert.Empty(t, second.Addresses.IPv4Src)
	assert.Equal(t, "2001:db8::1", second.Addresses.IPv6Src)
	assert.Equal(t, models.EmptyPayload, second.Payload.Hex)
}
