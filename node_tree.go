package shoal

import (
	"fmt"
	"slices"
	"sync"
)

// --- Tree manipulation ---

// Parent returns the node's parent, or nil.
func (n *Node) Parent() *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

// Stage returns the nearest Stage the node is attached under, or nil. For
// a Stage's own node this is the enclosing stage, not the stage itself.
func (n *Node) Stage() *Stage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stage
}

// RootStage returns the root Stage the node is attached under, or nil.
// A root Stage's node returns its own stage.
func (n *Node) RootStage() *Stage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.root
}

// Children returns a copy of the child list, back to front.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.children)
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.children)
}

// ChildAt returns the child at the given index, or nil if out of range.
func (n *Node) ChildAt(index int) *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// Drawable returns the first descendant named name in depth-first order,
// or nil.
func (n *Node) Drawable(name string) *Node {
	for _, c := range n.Children() {
		if c.Name() == name {
			return c
		}
		if found := c.Drawable(name); found != nil {
			return found
		}
	}
	return nil
}

// IsAncestorOf reports whether n is a strict ancestor of m.
func (n *Node) IsAncestorOf(m *Node) bool {
	if m == nil {
		return false
	}
	for p := m.Parent(); p != nil; p = p.Parent() {
		if p == n {
			return true
		}
	}
	return false
}

// treeMu serializes structural edits: the ancestry check, the detach from
// the old parent, the insert and the attachment refresh happen as one step.
// Node locks are taken only while it is held, parent before child, and no
// listener runs under it.
var treeMu sync.Mutex

// AddChild appends child to this node's children, detaching it from its
// previous parent first.
func (n *Node) AddChild(child *Node) error {
	return n.insertChild(child, -1)
}

// AddChildAt inserts child at index, detaching it from its previous parent
// first. The tree is unchanged when an error is returned.
func (n *Node) AddChildAt(child *Node, index int) error {
	if index < 0 {
		return fmt.Errorf("shoal: add at %d: %w", index, ErrIndexOutOfRange)
	}
	return n.insertChild(child, index)
}

// insertChild does the work of AddChild and AddChildAt. A negative index
// appends.
func (n *Node) insertChild(child *Node, index int) error {
	if child == nil {
		return ErrNilNode
	}
	if child.isRootStage() {
		return ErrRootStageChild
	}

	treeMu.Lock()
	if child == n || child.IsAncestorOf(n) {
		treeMu.Unlock()
		return fmt.Errorf("shoal: add %q to %q: %w", child.Name(), n.Name(), ErrCycle)
	}
	oldParent := child.Parent()
	count := n.NumChildren()
	if oldParent == n {
		count--
	}
	if index < 0 {
		index = count
	} else if index > count {
		treeMu.Unlock()
		return fmt.Errorf("shoal: add %q at %d: %w", child.Name(), index, ErrIndexOutOfRange)
	}

	if oldParent != nil {
		oldParent.detachChild(child)
	}

	n.mu.Lock()
	child.mu.Lock()
	n.children = slices.Insert(n.children, index, child)
	child.parent = n
	child.invalidated = true
	child.mu.Unlock()
	stage, root, showing := n.childAttachment()
	n.mu.Unlock()

	var tr []transition
	child.refreshAttachment(stage, root, showing, &tr)
	treeMu.Unlock()

	if oldParent != n {
		child.fireParentChanged(oldParent, n)
	}
	fireTransitions(tr)
	n.requestRepaint()
	if oldParent != nil && oldParent.RootStage() != root {
		oldParent.requestRepaint()
	}
	return nil
}

// RemoveChild detaches child from this node.
func (n *Node) RemoveChild(child *Node) error {
	if child == nil {
		return ErrNilNode
	}
	treeMu.Lock()
	if child.Parent() != n {
		treeMu.Unlock()
		return fmt.Errorf("shoal: remove %q from %q: %w", child.Name(), n.Name(), ErrNotChild)
	}
	n.detachChild(child)
	child.mu.Lock()
	child.invalidated = true
	child.mu.Unlock()

	var tr []transition
	child.refreshAttachment(nil, nil, false, &tr)
	treeMu.Unlock()

	child.fireParentChanged(n, nil)
	fireTransitions(tr)
	n.requestRepaint()
	return nil
}

// RemoveFromParent detaches this node from its parent. No-op if this node
// has no parent.
func (n *Node) RemoveFromParent() {
	if p := n.Parent(); p != nil {
		_ = p.RemoveChild(n)
	}
}

// SetChildIndex moves child to a new index among its siblings.
func (n *Node) SetChildIndex(child *Node, index int) error {
	if child == nil {
		return ErrNilNode
	}
	treeMu.Lock()
	n.mu.Lock()
	old := slices.Index(n.children, child)
	if old < 0 {
		n.mu.Unlock()
		treeMu.Unlock()
		return ErrNotChild
	}
	if index < 0 || index >= len(n.children) {
		n.mu.Unlock()
		treeMu.Unlock()
		return ErrIndexOutOfRange
	}
	n.children = slices.Delete(n.children, old, old+1)
	n.children = slices.Insert(n.children, index, child)
	n.mu.Unlock()
	treeMu.Unlock()
	n.requestRepaint()
	return nil
}

// detachChild removes child from the child list and clears its parent,
// locking parent before child. Attachment state is left for the caller to
// refresh so stage transitions compare the before and after states once.
func (n *Node) detachChild(child *Node) {
	n.mu.Lock()
	child.mu.Lock()
	if i := slices.Index(n.children, child); i >= 0 {
		n.children = slices.Delete(n.children, i, i+1)
	}
	if child.parent == n {
		child.parent = nil
	}
	child.mu.Unlock()
	n.mu.Unlock()
}

// childAttachment returns what a child of n is attached to. Caller holds n.mu.
func (n *Node) childAttachment() (stage, root *Stage, showing bool) {
	stage = n.stage
	if n.self != nil {
		stage = n.self
	}
	return stage, n.root, n.showing
}

// transition is a stage membership or visibility change recorded while
// refreshing a subtree, fired once all locks are released.
type transition struct {
	node  *Node
	typ   EventType
	stage *Stage
}

// refreshAttachment recomputes stage, root stage and showing state for n
// and its descendants, recording every change in tr in pre-order.
func (n *Node) refreshAttachment(stage, root *Stage, parentShowing bool, tr *[]transition) {
	n.mu.Lock()
	if n.isRootStage() {
		stage, root, parentShowing = nil, n.self, true
	}
	oldStage, oldRoot, oldShowing := n.stage, n.root, n.showing
	n.stage, n.root = stage, root
	n.showing = parentShowing && n.visible && root != nil
	showing := n.showing
	childStage, _, _ := n.childAttachment()
	children := slices.Clone(n.children)
	n.mu.Unlock()

	if oldStage != stage {
		if oldStage != nil {
			*tr = append(*tr, transition{n, EventRemovedFromStage, oldStage})
		}
		if stage != nil {
			*tr = append(*tr, transition{n, EventAddedToStage, stage})
		}
	}
	if oldRoot != root {
		if oldRoot != nil {
			*tr = append(*tr, transition{n, EventRemovedFromRootStage, oldRoot})
		}
		if root != nil {
			*tr = append(*tr, transition{n, EventAddedToRootStage, root})
		}
	}
	if oldShowing != showing {
		if showing {
			*tr = append(*tr, transition{n, EventShown, root})
		} else {
			*tr = append(*tr, transition{n, EventHidden, oldRoot})
		}
	}
	for _, c := range children {
		c.refreshAttachment(childStage, root, showing, tr)
	}
}

func fireTransitions(tr []transition) {
	for _, t := range tr {
		if t.node.listenersIfAny() == nil {
			continue
		}
		e := &TreeEvent{EventBase: newBase(t.typ, t.node), Stage: t.stage}
		if t.typ.Category() == CategoryVisibility {
			notifyAt(t.node, e, pickVisibility)
		} else {
			notifyAt(t.node, e, pickTree)
		}
	}
}

func (n *Node) fireParentChanged(oldParent, newParent *Node) {
	if n.listenersIfAny() == nil {
		return
	}
	e := &TreeEvent{EventBase: newBase(EventParentChanged, n), OldParent: oldParent, NewParent: newParent}
	notifyAt(n, e, pickTree)
}

// --- Visibility ---

// SetVisible shows or hides the node and its subtree. Hiding a root Stage
// fails with ErrRootStageHidden.
func (n *Node) SetVisible(v bool) error {
	if !v && n.isRootStage() {
		return ErrRootStageHidden
	}
	treeMu.Lock()
	n.mu.Lock()
	old := n.visible
	n.visible = v
	parent := n.parent
	stage, root := n.stage, n.root
	n.mu.Unlock()
	if old == v {
		treeMu.Unlock()
		return nil
	}

	parentShowing := parent != nil && parent.IsShowing()
	var tr []transition
	n.refreshAttachment(stage, root, parentShowing, &tr)
	treeMu.Unlock()
	n.fireValue(EventVisibilityChanged, "visible", old, v)
	fireTransitions(tr)
	n.requestRepaint()
	return nil
}
