package agent

import "sync"

// Cell is a single-slot mailbox. Publish overwrites whatever the consumer has
// not taken yet, so a slow reader only ever sees the newest value.
type Cell[T any] struct {
	mu sync.Mutex
	v  *T
}

// Publish stores v, replacing any unconsumed value
func (c *Cell[T]) Publish(v *T) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

// Take returns the stored value and empties the cell. It returns nil when
// nothing was published since the last Take.
func (c *Cell[T]) Take() *T {
	c.mu.Lock()
	v := c.v
	c.v = nil
	c.mu.Unlock()
	return v
}

// Peek returns the stored value without consuming it
func (c *Cell[T]) Peek() *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}
