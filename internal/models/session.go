package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a finished capture run. Packets are in capture order.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndedAt   time.Time
	Packets   []DecodedPacket
}

// Len returns the number of packets in the session.
func (s Session) Len() int {
	return len(s.Packets)
}

// Duration returns how long the capture run lasted.
func (s Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}
