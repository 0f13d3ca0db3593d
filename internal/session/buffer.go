package session

import (
	"gonetcap/internal/models"
	"sync"
)

// packetBuffer is the packet list shared between the capture worker and the driver.
type packetBuffer struct {
	mu      sync.Mutex
	packets []models.DecodedPacket
}

func (b *packetBuffer) append(pkt models.DecodedPacket) {
	b.mu.Lock()
	b.packets = append(b.packets, pkt)
	b.mu.Unlock()
}

func (b *packetBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.packets)
}

// snapshot returns a copy of the buffered packets in arrival order.
func (b *packetBuffer) snapshot() []models.DecodedPacket {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.DecodedPacket, len(b.packets))
	copy(out, b.packets)
	return out
}

// tail returns a copy of the last n packets, oldest first.
func (b *packetBuffer) tail(n int) []models.DecodedPacket {
	if n <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	start := 0
	if len(b.packets) > n {
		start = len(b.packets) - n
	}
	out := make([]models.DecodedPacket, len(b.packets)-start)
	copy(out, b.packets[start:])
	return out
}
