package session

import (
	"encoding/binary"
	"gonetcap/internal/capture"
	"gonetcap/internal/models"
	"net"
	"sync"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

// fakeSource hands out its frames in order. Once they are used up it returns
// end if set, otherwise it closes drained and keeps reporting timeouts.
type fakeSource struct {
	mu      sync.Mutex
	frames  [][]byte
	next    int
	end     error
	drained chan struct{}
	once    sync.Once
}

func newFakeSource(frames [][]byte, end error) *fakeSource {
	return &fakeSource{frames: frames, end: end, drained: make(chan struct{})}
}

func (s *fakeSource) NextFrame() (models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next < len(s.frames) {
		data := s.frames[s.next]
		s.next++
		return models.Frame{Data: data}, nil
	}
	s.once.Do(func() { close(s.drained) })
	if s.end != nil {
		return models.Frame{}, s.end
	}
	return models.Frame{}, capture.ErrTimeout
}

func (s *fakeSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (s *fakeSource) Close() error { return nil }

var _ capture.Source = (*fakeSource)(nil)

// udpFrame builds a UDP/IPv4 frame whose payload is the 4-byte big-endian sequence number.
func udpFrame(t *testing.T, seq uint32) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 1, 0, 1},
		DstIP:    net.IP{10, 1, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 30000, DstPort: 30001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, seq)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func udpFrames(t *testing.T, n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = udpFrame(t, uint32(i))
	}
	return frames
}
