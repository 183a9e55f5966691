package backend

import "sync"

// SurfaceState tracks what the presentation layer should show for the
// browser surface: whether it's visible, the page it was pointed at and a
// key that changes whenever the session is remounted.
type SurfaceState struct {
	mu sync.RWMutex

	visible bool
	url     string
	key     int
}

// Show marks the surface visible on url
func (s *SurfaceState) Show(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visible = true
	s.url = url
}

// Hide marks the surface hidden. The url is kept so a later remount can
// reopen it.
func (s *SurfaceState) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visible = false
}

// Remount bumps the key and returns the new value
func (s *SurfaceState) Remount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.key++
	return s.key
}

// Visible returns whether the surface is showing
func (s *SurfaceState) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// URL returns the page the surface was last shown on
func (s *SurfaceState) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

// Key returns the current remount key
func (s *SurfaceState) Key() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}
