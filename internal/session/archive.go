package session

import (
	"errors"
	"fmt"
	"gonetcap/internal/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoSessions is returned by List when the archive is empty.
var ErrNoSessions = errors.New("session: no sessions recorded")

// SelectionError reports a session index outside the archive.
type SelectionError struct {
	Index int
	Len   int
}

func (e *SelectionError) Error() string {
	if e.Len == 0 {
		return fmt.Sprintf("session: index %d out of range, archive is empty", e.Index)
	}
	return fmt.Sprintf("session: index %d out of range [0, %d)", e.Index, e.Len)
}

// PacketWriter receives the packets of an exported session in capture order.
type PacketWriter interface {
	WritePacket(pkt models.DecodedPacket) error
}

// Summary is one row of the archive listing.
type Summary struct {
	Index     int
	ID        uuid.UUID
	Packets   int
	StartedAt time.Time
	Duration  time.Duration
}

// Archive is the append-only, ordered store of finished sessions.
// A session's index is its position and never changes.
type Archive struct {
	mu       sync.RWMutex
	sessions []models.Session
}

// NewArchive creates an empty Archive.
func NewArchive() *Archive {
	return &Archive{}
}

// Append adds s to the end of the archive. Empty sessions are ignored;
// the return value reports whether s was stored.
func (a *Archive) Append(s models.Session) bool {
	if s.Len() == 0 {
		return false
	}
	a.mu.Lock()
	a.sessions = append(a.sessions, s)
	a.mu.Unlock()
	return true
}

// Len returns the number of archived sessions.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// Get returns the session at index.
func (a *Archive) Get(index int) (models.Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if index < 0 || index >= len(a.sessions) {
		return models.Session{}, &SelectionError{Index: index, Len: len(a.sessions)}
	}
	return a.sessions[index], nil
}

// List returns one summary per session in archive order,
// or ErrNoSessions when nothing has been archived yet.
func (a *Archive) List() ([]Summary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.sessions) == 0 {
		return nil, ErrNoSessions
	}

	out := make([]Summary, len(a.sessions))
	for i, s := range a.sessions {
		out[i] = Summary{
			Index:     i,
			ID:        s.ID,
			Packets:   s.Len(),
			StartedAt: s.StartedAt,
			Duration:  s.Duration(),
		}
	}
	return out, nil
}

// Export passes every packet of the session at index to w, in capture order.
// An out-of-range index returns a *SelectionError without touching w.
// The first write error stops the export and is returned; packets already
// written are not rolled back.
func (a *Archive) Export(index int, w PacketWriter) error {
	s, err := a.Get(index)
	if err != nil {
		return err
	}

	for i, pkt := range s.Packets {
		if err := w.WritePacket(pkt); err != nil {
			return fmt.Errorf("export session %d: packet %d of %d: %w", index, i+1, s.Len(), err)
		}
	}
	return nil
}
