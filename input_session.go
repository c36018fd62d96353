package shoal

import (
	"sync"
	"time"
)

// clickRecord remembers the last press or release for multi-click counting.
type clickRecord struct {
	node   *Node
	button MouseButton
	when   time.Time
	count  int
}

// InputSession is the pointer state of one input pipeline: the hovered
// node, the buttons held and the click record. Each root stage owns its
// own session, so independent scenes never share hover or click state.
type InputSession struct {
	mu      sync.Mutex
	timeout time.Duration
	hovered *Node
	buttons uint8
	click   clickRecord
}

// NewInputSession returns a session counting clicks that are at most
// timeout apart. A timeout <= 0 means DefaultClickTimeout.
func NewInputSession(timeout time.Duration) *InputSession {
	if timeout <= 0 {
		timeout = DefaultClickTimeout
	}
	return &InputSession{timeout: timeout}
}

// ClickTimeout returns the multi-click window.
func (s *InputSession) ClickTimeout() time.Duration { return s.timeout }

// Hovered returns the node the pointer was last over.
func (s *InputSession) Hovered() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovered
}

// ButtonsHeld reports whether any pointer button is down.
func (s *InputSession) ButtonsHeld() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons != 0
}

// ClickCount returns the running multi-click count.
func (s *InputSession) ClickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.click.count
}

// Reset forgets hover, held buttons and the click record.
func (s *InputSession) Reset() {
	s.mu.Lock()
	s.hovered = nil
	s.buttons = 0
	s.click = clickRecord{}
	s.mu.Unlock()
}

// press records a button press on node. The running count restarts at 0
// unless node and button match the record and the previous event is within
// the timeout. It returns the running count.
func (s *InputSession) press(node *Node, button MouseButton, when time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.click
	if c.node != node || c.button != button || when.Sub(c.when) > s.timeout {
		c.count = 0
	}
	c.node, c.button, c.when = node, button, when
	s.buttons |= button.mask()
	return c.count
}

// release records a button release on node and returns the click count it
// completes: one more than the running count on the same node and button
// within the timeout, else 1.
func (s *InputSession) release(node *Node, button MouseButton, when time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.click
	if c.node == node && c.button == button && when.Sub(c.when) <= s.timeout {
		c.count++
	} else {
		c.count = 1
	}
	c.node, c.button, c.when = node, button, when
	s.buttons &^= button.mask()
	return c.count
}

// setHovered swaps the hovered node and returns the previous one.
func (s *InputSession) setHovered(n *Node) (old *Node, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old = s.hovered
	s.hovered = n
	return old, old != n
}
