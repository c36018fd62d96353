package shoal

import (
	"cmp"
	"slices"
	"sync"
)

// FocusManager tracks keyboard focus for one root Stage. It is created with
// the stage and lives as long as it does.
type FocusManager struct {
	mu    sync.Mutex
	stage *Stage

	focus          *Node
	temporary      bool
	hasSystemFocus bool
	watch          []Handle // auto-clear listeners on the focus holder

	pending       *Node
	pendingHandle Handle
}

func newFocusManager(s *Stage) *FocusManager {
	return &FocusManager{stage: s}
}

// Stage returns the root stage the manager belongs to.
func (m *FocusManager) Stage() *Stage { return m.stage }

// Focus returns the node focus is assigned to, regardless of whether it can
// currently receive keys.
func (m *FocusManager) Focus() *Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focus
}

// PendingFocus returns the node waiting to be shown before it takes focus.
func (m *FocusManager) PendingFocus() *Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// HasSystemFocus reports whether the host surface owns input focus.
func (m *FocusManager) HasSystemFocus() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasSystemFocus
}

// SetSystemFocus records whether the host surface owns input focus. On a
// change the effective focus holder receives a temporary focus-gained or
// focus-lost event.
func (m *FocusManager) SetSystemFocus(focused bool) {
	m.mu.Lock()
	old := m.hasSystemFocus
	m.hasSystemFocus = focused
	m.mu.Unlock()
	if old == focused {
		return
	}
	f := m.EffectiveFocus()
	if f == nil {
		return
	}
	if focused {
		m.dispatch(f, EventFocusGained, nil, true)
	} else {
		m.dispatch(f, EventFocusLost, nil, true)
	}
}

// EffectiveFocus returns the assigned focus if it is still focusable and
// showing on this manager's stage.
func (m *FocusManager) EffectiveFocus() *Node {
	f := m.Focus()
	if f == nil || !f.Focusable() || !f.IsShowing() || f.RootStage() != m.stage {
		return nil
	}
	return f
}

// CurrentFocus returns EffectiveFocus while the host surface has system
// focus, else nil.
func (m *FocusManager) CurrentFocus() *Node {
	if !m.HasSystemFocus() {
		return nil
	}
	return m.EffectiveFocus()
}

// IsFocused reports whether n is the current focus.
func (m *FocusManager) IsFocused(n *Node) bool {
	return n != nil && m.CurrentFocus() == n
}

// IsDescendantFocused reports whether n or one of its descendants is the
// current focus.
func (m *FocusManager) IsDescendantFocused(n *Node) bool {
	f := m.CurrentFocus()
	return f != nil && n != nil && (f == n || n.IsAncestorOf(f))
}

// SetFocus assigns focus to n. A nil n clears focus; a node that is not
// focusable is ignored. A node that is not showing yet becomes the pending
// focus and takes focus once it is shown; a newer request cancels an older
// pending one. The focus holder loses focus automatically when it is
// hidden or leaves the root stage. Focus events are sent only while the
// host surface has system focus.
func (m *FocusManager) SetFocus(n *Node, temporary bool) {
	if n == nil {
		m.clear(nil, temporary)
		return
	}
	if !n.Focusable() {
		return
	}
	if root := n.RootStage(); root != nil && root != m.stage {
		tracer().Debugf("focus: %q belongs to another root stage, ignored", n.Name())
		return
	}
	if !n.IsShowing() {
		m.deferFocus(n, temporary)
		return
	}
	m.transfer(n, temporary)
}

// deferFocus records n as pending focus with a one-shot shown listener.
func (m *FocusManager) deferFocus(n *Node, temporary bool) {
	m.mu.Lock()
	prev := m.pendingHandle
	m.pending = n
	m.pendingHandle = Handle{}
	m.mu.Unlock()
	prev.Remove()

	self := n.Listeners().Visibility.Add(only(EventShown, func(*TreeEvent) {
		m.mu.Lock()
		if m.pending != n {
			m.mu.Unlock()
			return
		}
		h := m.pendingHandle
		m.pending = nil
		m.pendingHandle = Handle{}
		m.mu.Unlock()
		h.Remove()
		m.SetFocus(n, temporary)
	}))

	m.mu.Lock()
	stale := m.pending != n
	if !stale {
		m.pendingHandle = self
	}
	m.mu.Unlock()
	if stale {
		self.Remove()
	}

	deferredFocus.Inc()
	tracer().Debugf("focus: %q is not showing, focus deferred", n.Name())
}

func (m *FocusManager) transfer(n *Node, temporary bool) {
	m.mu.Lock()
	pending := m.pendingHandle
	m.pending = nil
	m.pendingHandle = Handle{}
	old := m.focus
	if old == n {
		m.temporary = temporary
		m.mu.Unlock()
		pending.Remove()
		return
	}
	watch := m.watch
	m.focus = n
	m.temporary = temporary
	m.watch = nil
	sys := m.hasSystemFocus
	m.mu.Unlock()

	pending.Remove()
	for _, h := range watch {
		h.Remove()
	}
	m.watchHolder(n)

	tracer().Debugf("focus: %s -> %q", nodeLabel(old), n.Name())
	if sys {
		if old != nil {
			m.dispatch(old, EventFocusLost, n, temporary)
		}
		m.dispatch(n, EventFocusGained, old, temporary)
	}
	m.stage.RequestRepaint()
}

// watchHolder installs the auto-clear listeners on the new holder.
func (m *FocusManager) watchHolder(n *Node) {
	l := n.Listeners()
	handles := []Handle{
		l.Tree.Add(only(EventRemovedFromRootStage, func(*TreeEvent) { m.clear(n, false) })),
		l.Visibility.Add(only(EventHidden, func(*TreeEvent) { m.clear(n, false) })),
	}
	m.mu.Lock()
	if m.focus == n {
		m.watch = handles
		handles = nil
	}
	m.mu.Unlock()
	for _, h := range handles {
		h.Remove()
	}
}

// clear drops focus. With a non-nil holder, focus is dropped only if it is
// still held by that node.
func (m *FocusManager) clear(holder *Node, temporary bool) {
	m.mu.Lock()
	old := m.focus
	if holder != nil && old != holder {
		m.mu.Unlock()
		return
	}
	var pending Handle
	if holder == nil {
		pending = m.pendingHandle
		m.pending = nil
		m.pendingHandle = Handle{}
	}
	watch := m.watch
	m.focus = nil
	m.watch = nil
	sys := m.hasSystemFocus
	m.mu.Unlock()

	pending.Remove()
	for _, h := range watch {
		h.Remove()
	}
	if old == nil {
		return
	}
	tracer().Debugf("focus: %q cleared", old.Name())
	if sys {
		m.dispatch(old, EventFocusLost, nil, temporary)
	}
	m.stage.RequestRepaint()
}

func (m *FocusManager) dispatch(n *Node, t EventType, related *Node, temporary bool) {
	e := &FocusEvent{EventBase: newBase(t, n), Related: related, Temporary: temporary}
	notifyAt(n, e, pickFocus)
}

// --- Tab order ---

// TabOrder returns the focusable, showing descendants of root with a
// non-negative tab index, ordered by tab index with 0 after all positive
// values. Ties keep tree order. Subtrees under an invisible node are
// skipped.
func (m *FocusManager) TabOrder(root *Node) []*Node {
	if root == nil {
		return nil
	}
	var out []*Node
	var walk func(p *Node)
	walk = func(p *Node) {
		for _, c := range p.Children() {
			if !c.Visible() {
				continue
			}
			if c.Focusable() && c.TabIndex() >= 0 && c.IsShowing() {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	slices.SortStableFunc(out, func(a, b *Node) int {
		return compareTabIndex(a.TabIndex(), b.TabIndex())
	})
	return out
}

// compareTabIndex orders positive tab indexes ascending, with 0 after all
// of them.
func compareTabIndex(a, b int) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	}
	return cmp.Compare(a, b)
}

// FocusNextTabbable moves focus to the next (or previous) entry of root's
// tab order, wrapping at the ends. Without tabbable descendants, root itself
// is focused if its own tab index is non-negative. It reports whether focus
// was assigned.
func (m *FocusManager) FocusNextTabbable(root *Node, forward bool) (bool, error) {
	if root == nil {
		return false, ErrNilNode
	}
	if root.RootStage() != m.stage {
		return false, ErrNotOnStage
	}
	order := m.TabOrder(root)
	if len(order) == 0 {
		if root.TabIndex() < 0 || !root.Focusable() {
			return false, nil
		}
		m.SetFocus(root, false)
		return m.Focus() == root, nil
	}

	i := slices.Index(order, m.Focus())
	var next int
	switch {
	case i < 0 && forward:
		next = 0
	case i < 0:
		next = len(order) - 1
	case forward:
		next = (i + 1) % len(order)
	default:
		next = (i - 1 + len(order)) % len(order)
	}
	m.SetFocus(order[next], false)
	return true, nil
}

func nodeLabel(n *Node) string {
	if n == nil {
		return "<none>"
	}
	return "\"" + n.Name() + "\""
}
