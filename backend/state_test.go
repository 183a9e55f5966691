package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurfaceState(t *testing.T) {
	var s SurfaceState
	assert.False(t, s.Visible())
	assert.Equal(t, 0, s.Key())

	s.Show("https://example.com/login")
	assert.True(t, s.Visible())
	assert.Equal(t, "https://example.com/login", s.URL())

	assert.Equal(t, 1, s.Remount())
	assert.Equal(t, 2, s.Remount())
	assert.Equal(t, 2, s.Key())

	s.Hide()
	assert.False(t, s.Visible())
	assert.Equal(t, "https://example.com/login", s.URL())
}
