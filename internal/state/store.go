package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/loglens/internal/ingest"
)

// Phase is the lifecycle position of the current tailing session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTailing
	PhaseWaiting
	PhaseFailed
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseTailing:
		return "tailing"
	case PhaseWaiting:
		return "waiting for file"
	case PhaseFailed:
		return "failed"
	case PhaseStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Snapshot represents the latest session data available to the UI.
type Snapshot struct {
	SessionID      string
	Path           string
	Phase          Phase
	StartedAt      time.Time
	LinesDelivered int
	Batches        int
	Rotations      int
	LastError      error
	LastUpdated    time.Time
}

// Active reports whether a session is running.
func (s Snapshot) Active() bool {
	return s.Phase == PhaseTailing || s.Phase == PhaseWaiting
}

// Store records session events for display. It implements ingest.Monitor;
// events from any session other than the most recently started one are
// ignored, so a restarted session's stragglers cannot overwrite the new one.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

var _ ingest.Monitor = (*Store)(nil)

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// update applies fn when id is the current session.
func (s *Store) update(id string, fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.SessionID == "" || id != s.snapshot.SessionID {
		return
	}
	fn(&s.snapshot)
	s.snapshot.LastUpdated = s.clock()
}

// Started resets the snapshot for a new session.
func (s *Store) Started(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.snapshot = Snapshot{
		SessionID:   id,
		Path:        path,
		Phase:       PhaseTailing,
		StartedAt:   now,
		LastUpdated: now,
	}
}

// Rotated counts a rotation or truncation.
func (s *Store) Rotated(id string) {
	s.update(id, func(snap *Snapshot) {
		snap.Rotations++
		snap.Phase = PhaseTailing
	})
}

// FileMissing marks the session as waiting for its file.
func (s *Store) FileMissing(id string) {
	s.update(id, func(snap *Snapshot) { snap.Phase = PhaseWaiting })
}

// Delivered counts a batch that reached the sink.
func (s *Store) Delivered(id string, lines int) {
	s.update(id, func(snap *Snapshot) {
		snap.LinesDelivered += lines
		snap.Batches++
		snap.Phase = PhaseTailing
	})
}

// Failed records the error that ended the session.
func (s *Store) Failed(id string, err error) {
	s.update(id, func(snap *Snapshot) {
		snap.Phase = PhaseFailed
		snap.LastError = err
	})
}

// Stopped marks a clean end of the session.
func (s *Store) Stopped(id string) {
	s.update(id, func(snap *Snapshot) { snap.Phase = PhaseStopped })
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
