package mode

import (
	"fmt"
	"sync"
)

// Cell holds the requested mode shared between the front-end and the control
// loop. The lock only ever guards the copy in or out.
type Cell struct {
	mu   sync.Mutex
	mode Mode
}

// NewCell returns a cell holding Default.
func NewCell() *Cell {
	return &Cell{mode: Default}
}

// Get returns the current request.
func (c *Cell) Get() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Set atomically replaces the request. Undefined is rejected.
func (c *Cell) Set(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %s", ErrNotSelectable, m)
	}
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
	return nil
}
