package analysis

import (
	"gonetcap/internal/models"
	"sort"
	"sync"
	"time"
)

// OtherProtocol labels packets whose transport is neither TCP nor UDP.
const OtherProtocol = "Other"

// IPStat holds stats for a single source address.
type IPStat struct {
	IP    string
	Bytes int
}

// ProtocolStat holds stats for a single protocol.
type ProtocolStat struct {
	Protocol string
	Count    int64
}

// TrafficStats tracks live statistics for the running capture session.
type TrafficStats struct {
	mu             sync.Mutex
	now            func() time.Time
	totalBytes     int64
	totalPackets   int64
	windowBytes    int64
	windowPackets  int64
	lastTick       time.Time
	ipBytes        map[string]int
	protocolCounts map[string]int64
}

// NewTrafficStats creates a new TrafficStats instance.
func NewTrafficStats() *TrafficStats {
	return newTrafficStats(time.Now)
}

func newTrafficStats(now func() time.Time) *TrafficStats {
	return &TrafficStats{
		now:            now,
		lastTick:       now(),
		ipBytes:        make(map[string]int),
		protocolCounts: make(map[string]int64),
	}
}

func protocolOf(pkt models.DecodedPacket) string {
	if proto := pkt.Transport.Protocol(); proto != "" {
		return proto
	}
	return OtherProtocol
}

// ProcessPacket updates stats with a new packet.
func (s *TrafficStats) ProcessPacket(pkt models.DecodedPacket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalBytes += int64(pkt.Length)
	s.totalPackets++
	s.windowBytes += int64(pkt.Length)
	s.windowPackets++

	if src := pkt.Addresses.Src(); src != "" {
		s.ipBytes[src] += pkt.Length
	}
	s.protocolCounts[protocolOf(pkt)]++
}

// Totals returns the packet and byte counts since the last Reset.
func (s *TrafficStats) Totals() (packets, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPackets, s.totalBytes
}

// GetRates returns the bandwidth (bps) and packet rate (pps) since the last call.
func (s *TrafficStats) GetRates() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	duration := now.Sub(s.lastTick).Seconds()
	if duration <= 0 {
		return 0, 0
	}

	bps := (float64(s.windowBytes) * 8) / duration
	pps := float64(s.windowPackets) / duration

	s.windowBytes = 0
	s.windowPackets = 0
	s.lastTick = now

	return bps, pps
}

// GetTopTalkers returns the top N source addresses by volume.
func (s *TrafficStats) GetTopTalkers(limit int) []IPStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return topTalkers(s.ipBytes, limit)
}

// GetProtocolStats returns the protocol distribution.
func (s *TrafficStats) GetProtocolStats() []ProtocolStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocolStats(s.protocolCounts)
}

// Reset clears all counters; called when a new session starts.
func (s *TrafficStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalBytes, s.totalPackets = 0, 0
	s.windowBytes, s.windowPackets = 0, 0
	s.lastTick = s.now()
	clear(s.ipBytes)
	clear(s.protocolCounts)
}

func topTalkers(ipBytes map[string]int, limit int) []IPStat {
	stats := make([]IPStat, 0, len(ipBytes))
	for ip, bytes := range ipBytes {
		stats = append(stats, IPStat{IP: ip, Bytes: bytes})
	}

	// Ties broken by address so output is stable between refreshes.
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Bytes != stats[j].Bytes {
			return stats[i].Bytes > stats[j].Bytes
		}
		return stats[i].IP < stats[j].IP
	})

	if limit >= 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

func protocolStats(counts map[string]int64) []ProtocolStat {
	stats := make([]ProtocolStat, 0, len(counts))
	for proto, count := range counts {
		stats = append(stats, ProtocolStat{Protocol: proto, Count: count})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Protocol < stats[j].Protocol
	})

	return stats
}

// Summary is the offline breakdown of an archived session.
type Summary struct {
	Packets    int
	Bytes      int64
	Protocols  []ProtocolStat
	TopTalkers []IPStat
}

// Summarize computes protocol counts and top talkers for a finished session.
func Summarize(s models.Session, talkers int) Summary {
	ipBytes := make(map[string]int)
	counts := make(map[string]int64)

	var total int64
	for _, pkt := range s.Packets {
		total += int64(pkt.Length)
		if src := pkt.Addresses.Src(); src != "" {
			ipBytes[src] += pkt.Length
		}
		counts[protocolOf(pkt)]++
	}

	return Summary{
		Packets:    s.Len(),
		Bytes:      total,
		Protocols:  protocolStats(counts),
		TopTalkers: topTalkers(ipBytes, talkers),
	}
}
