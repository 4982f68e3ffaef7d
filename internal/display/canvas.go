package display

import (
	"fmt"
	"sync"
)

// Canvas holds the frame to show. Producers replace it whole; the streamer
// takes a private copy before each send, so an in-flight frame never
// changes underneath the driver.
type Canvas struct {
	mu   sync.RWMutex
	size int
	pix  []byte
	gen  uint64
}

// NewCanvas returns a black canvas of size bytes.
func NewCanvas(size int) *Canvas {
	return &Canvas{size: size, pix: make([]byte, size)}
}

// Set replaces the frame with a copy of pix.
func (c *Canvas) Set(pix []byte) error {
	if len(pix) != c.size {
		return fmt.Errorf("frame is %d bytes, want %d", len(pix), c.size)
	}
	buf := append([]byte(nil), pix...)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pix = buf
	c.gen++
	return nil
}

// Snapshot returns a copy of the current frame and its generation, which
// increases with every Set.
func (c *Canvas) Snapshot() ([]byte, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]byte(nil), c.pix...), c.gen
}
