// Package camera abstracts the live capture source. The AI core only
// ever asks for the current frame and pushes a normalized focus point;
// actual camera plumbing lives behind this interface.
package camera

import (
	"sync"

	"aicam/internal/domain"
)

// FrameSource supplies frames from a live capture session. CurrentFrame
// returns domain.ErrNoFrame until the first frame is available.
type FrameSource interface {
	CurrentFrame() ([]byte, error)
	// Focus performs best-effort focus/metering at a normalized point
	// (0..1 in both axes).
	Focus(x, y float64)
	Position() string
	Start()
	Stop()
}

// FocusPoint is a normalized point in the frame.
type FocusPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StaticSource is a FrameSource backed by a settable frame buffer. It
// serves development and tests, and doubles as the ingestion point when
// frames arrive over the control API instead of local hardware.
type StaticSource struct {
	mu       sync.RWMutex
	frame    []byte
	focus    *FocusPoint
	position string
	running  bool
	onFrame  func()
}

// NewStaticSource returns a stopped source with no frame yet.
func NewStaticSource() *StaticSource {
	return &StaticSource{position: "back"}
}

// SetFrame replaces the current frame.
func (s *StaticSource) SetFrame(frame []byte) {
	s.mu.Lock()
	first := s.frame == nil && frame != nil
	s.frame = frame
	cb := s.onFrame
	s.mu.Unlock()
	if first && cb != nil {
		cb()
	}
}

// OnFirstFrame registers a callback invoked once when the first frame
// arrives. Used to kick off auto-inspiration.
func (s *StaticSource) OnFirstFrame(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = cb
}

// CurrentFrame returns the latest frame, or domain.ErrNoFrame.
func (s *StaticSource) CurrentFrame() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frame) == 0 {
		return nil, domain.ErrNoFrame
	}
	frame := make([]byte, len(s.frame))
	copy(frame, s.frame)
	return frame, nil
}

// Focus records the requested point; a hardware-backed source would
// steer metering here.
func (s *StaticSource) Focus(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = &FocusPoint{X: x, Y: y}
}

// LastFocus returns the most recent focus request, if any.
func (s *StaticSource) LastFocus() (FocusPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.focus == nil {
		return FocusPoint{}, false
	}
	return *s.focus, true
}

// Position reports the active camera position.
func (s *StaticSource) Position() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// Start marks the source running.
func (s *StaticSource) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// Stop marks the source stopped.
func (s *StaticSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

var _ FrameSource = (*StaticSource)(nil)
