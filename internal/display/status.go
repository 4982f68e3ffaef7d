package display

import (
	"sync"
	"time"

	"github.com/mzyy94/ebotlcd/internal/lcd"
)

// Status tracks the session and frame counters of a Display.
type Status struct {
	mu       sync.RWMutex
	snapshot StatusSnapshot
}

// StatusSnapshot is a copy of the Status fields.
type StatusSnapshot struct {
	Connected bool   `json:"connected"`
	SessionID string `json:"sessionId,omitempty"`
	Device    string `json:"device,omitempty"` // vid:pid of the open session
	Frames    uint64 `json:"frames"`
	Failures  uint64 `json:"failures"`
	LastError string `json:"lastError,omitempty"`
	LastFrame string `json:"lastFrame,omitempty"` // RFC3339
	FrameTime string `json:"frameTime,omitempty"` // duration of the last good frame
}

// Snapshot returns a copy of the current status.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Status) setConnected(sessionID, device string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connected = true
	s.snapshot.SessionID = sessionID
	s.snapshot.Device = device
	s.snapshot.LastError = ""
}

func (s *Status) setDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connected = false
	s.snapshot.SessionID = ""
	s.snapshot.Device = ""
}

func (s *Status) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastError = err.Error()
}

func (s *Status) recordFrame(st lcd.Stats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.snapshot.Failures++
		s.snapshot.LastError = err.Error()
		return
	}
	s.snapshot.Frames++
	s.snapshot.LastError = ""
	s.snapshot.LastFrame = time.Now().UTC().Format(time.RFC3339)
	s.snapshot.FrameTime = st.Elapsed.Round(time.Microsecond).String()
}
