package shoal

import (
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

// PaintFunc draws a node's own content. geo maps the node's local space to
// dst and cs is the color scale to draw with; children are painted
// afterwards by the stage.
type PaintFunc func(n *Node, dst *ebiten.Image, geo ebiten.GeoM, cs ebiten.ColorScale)

// HitShape is used for custom hit testing regions in local coordinates.
type HitShape interface {
	Contains(x, y float64) bool
}

var nodeIDCounter atomic.Uint32

func nextNodeID() uint32 {
	return nodeIDCounter.Add(1)
}

// Node is the scene graph element. All state behind the setters is guarded
// by the node's own lock; listeners are always notified after it has been
// released.
type Node struct {
	mu sync.RWMutex

	// Identity
	id    uint32
	name  string
	kind  NodeType
	anim  *Animation  // sprites only
	label *labelState // labels only

	// Hierarchy. Children are the only owning edges; parent, stage and root
	// are back-references.
	parent   *Node
	children []*Node
	self     *Stage // set when this node is a Stage's node
	stage    *Stage // stage this node belongs to
	root     *Stage // root stage this node belongs to

	// Geometry (local)
	x, y             float64
	centerX, centerY float64
	width, height    float64
	scaleX, scaleY   float64
	rotation         float64

	transform      Affine
	transformValid bool

	// Appearance & interaction
	opacity       float64
	color         Color
	visible       bool
	showing       bool
	mouseEnabled  bool
	mouseChildren bool
	clipChildren  bool
	focusable     bool
	tabIndex      int
	filters       []Filter

	// Validation. validating guards against re-entrance from the same
	// goroutine only: one node must not be validated from two goroutines.
	invalidated bool
	validating  bool

	listeners *Listeners

	// OnValidate recomputes derived geometry (e.g. auto-size to content).
	// It runs at most once per invalidation; mutations it performs do not
	// schedule another run. Set before the node is attached.
	OnValidate func(n *Node)
	// Paint draws the node's own content. Set before the node is attached.
	Paint PaintFunc
	// HitShape overrides the default bounds test. Set before the node is
	// attached.
	HitShape HitShape
	// UserData is free for the application.
	UserData any
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node) {
	n.id = nextNodeID()
	n.scaleX = 1
	n.scaleY = 1
	n.opacity = 1
	n.color = ColorWhite
	n.visible = true
	n.mouseEnabled = true
	n.mouseChildren = true
	n.tabIndex = -1
	n.invalidated = true
}

// NewContainer creates a node with no visual output.
func NewContainer(name string) *Node {
	n := &Node{name: name, kind: NodeTypeContainer}
	nodeDefaults(n)
	return n
}

// NewFill creates a solid color rectangle of the given unscaled size.
// Negative sizes are clamped to zero.
func NewFill(name string, w, h float64, c Color) *Node {
	n := &Node{name: name, kind: NodeTypeFill}
	nodeDefaults(n)
	n.width, n.height = max(w, 0), max(h, 0)
	n.color = c
	n.Paint = paintFill
	return n
}

func paintFill(n *Node, dst *ebiten.Image, geo ebiten.GeoM, cs ebiten.ColorScale) {
	w, h := n.UnscaledSize()
	c := n.Color()
	if w <= 0 || h <= 0 || c.A <= 0 {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(w, h)
	op.GeoM.Concat(geo)
	op.ColorScale = cs
	op.ColorScale.ScaleWithColor(c.RGBA())
	dst.DrawImage(WhitePixel(), &op)
}

// ID returns the node's process-unique identifier.
func (n *Node) ID() uint32 { return n.id }

// Type returns the node's kind.
func (n *Node) Type() NodeType { return n.kind }

// Name returns the node's name.
func (n *Node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// SetName renames the node. Names are used by Drawable lookups and need
// not be unique.
func (n *Node) SetName(name string) {
	n.mu.Lock()
	n.name = name
	n.mu.Unlock()
}

// AsStage returns the Stage backed by n, or nil when n is not a stage node.
func (n *Node) AsStage() *Stage { return n.self }

func (n *Node) isRootStage() bool {
	return n.self != nil && n.self.root
}

// --- Flags ---

// Visible reports the node's own visibility flag.
func (n *Node) Visible() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.visible
}

// IsShowing reports whether the node and all its ancestors are visible and
// the chain ends at a root stage.
func (n *Node) IsShowing() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.showing
}

// Opacity returns the node's opacity in [0, 1].
func (n *Node) Opacity() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.opacity
}

// SetOpacity sets the opacity, clamped to [0, 1], and fires
// EventOpacityChanged when the stored value changes.
func (n *Node) SetOpacity(o float64) {
	o = clamp01(o)
	n.mu.Lock()
	old := n.opacity
	n.opacity = o
	n.mu.Unlock()
	if old == o {
		return
	}
	n.requestRepaint()
	n.fireValue(EventOpacityChanged, "opacity", old, o)
}

// Color returns the node's tint (the fill color for NewFill nodes).
func (n *Node) Color() Color {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.color
}

// SetColor sets the node's tint.
func (n *Node) SetColor(c Color) {
	n.mu.Lock()
	changed := n.color != c
	n.color = c
	n.mu.Unlock()
	if changed {
		n.requestRepaint()
	}
}

// MouseEnabled reports whether the node itself can be hit by the pointer.
func (n *Node) MouseEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mouseEnabled
}

// SetMouseEnabled sets whether the node itself can be hit by the pointer.
func (n *Node) SetMouseEnabled(v bool) {
	n.mu.Lock()
	n.mouseEnabled = v
	n.mu.Unlock()
}

// MouseChildren reports whether hit testing descends into the children.
func (n *Node) MouseChildren() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mouseChildren
}

// SetMouseChildren sets whether hit testing descends into the children.
func (n *Node) SetMouseChildren(v bool) {
	n.mu.Lock()
	n.mouseChildren = v
	n.mu.Unlock()
}

// ClipChildren reports whether children are clipped to the node's bounds.
func (n *Node) ClipChildren() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.clipChildren
}

// SetClipChildren sets whether children are clipped to the node's bounds,
// both when painting and when hit testing.
func (n *Node) SetClipChildren(v bool) {
	n.mu.Lock()
	changed := n.clipChildren != v
	n.clipChildren = v
	n.mu.Unlock()
	if changed {
		n.requestRepaint()
	}
}

// Focusable reports whether the node may hold keyboard focus.
func (n *Node) Focusable() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.focusable
}

// SetFocusable sets whether the node may hold keyboard focus.
func (n *Node) SetFocusable(v bool) {
	n.mu.Lock()
	n.focusable = v
	n.mu.Unlock()
}

// TabIndex returns the tab index. Negative values keep the node out of the
// tab order; 0 sorts after all positive values.
func (n *Node) TabIndex() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tabIndex
}

// SetTabIndex sets the tab index.
func (n *Node) SetTabIndex(i int) {
	n.mu.Lock()
	n.tabIndex = i
	n.mu.Unlock()
}

// Filters returns a copy of the node's post-processing filter chain.
func (n *Node) Filters() []Filter {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Filter(nil), n.filters...)
}

// SetFilters replaces the filter chain. A non-empty chain makes the node
// paint through an offscreen buffer.
func (n *Node) SetFilters(filters ...Filter) {
	n.mu.Lock()
	n.filters = append([]Filter(nil), filters...)
	n.mu.Unlock()
	n.requestRepaint()
}

// --- Validation ---

// Invalidate marks the node for validation before its next paint or hit
// test and requests a repaint.
func (n *Node) Invalidate() {
	n.mu.Lock()
	n.invalidated = true
	n.mu.Unlock()
	n.requestRepaint()
}

// IsInvalidated reports whether the node awaits validation.
func (n *Node) IsInvalidated() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.invalidated
}

// ValidateDrawable runs OnValidate if the node is invalidated and not
// already validating, then clears the invalidation. Invalidations raised
// by OnValidate itself are absorbed.
func (n *Node) ValidateDrawable() {
	n.mu.Lock()
	if !n.invalidated || n.validating {
		n.mu.Unlock()
		return
	}
	n.validating = true
	hook := n.OnValidate
	n.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	n.mu.Lock()
	n.validating = false
	n.invalidated = false
	n.mu.Unlock()
}

// validateTree validates n and its visible descendants, parents first.
func validateTree(n *Node) {
	if !n.Visible() {
		return
	}
	n.ValidateDrawable()
	for _, c := range n.Children() {
		validateTree(c)
	}
}

// --- Listeners ---

// Listeners returns the node's listener registries, allocating them on
// first use.
func (n *Node) Listeners() *Listeners {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = &Listeners{}
	}
	return n.listeners
}

// listenersIfAny returns the registries without allocating.
func (n *Node) listenersIfAny() *Listeners {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.listeners
}

// OnPointerDown registers a listener for EventPointerPressed.
func (n *Node) OnPointerDown(fn func(*PointerEvent)) Handle {
	return n.Listeners().Pointer.Add(only(EventPointerPressed, fn))
}

// OnPointerUp registers a listener for EventPointerReleased.
func (n *Node) OnPointerUp(fn func(*PointerEvent)) Handle {
	return n.Listeners().Pointer.Add(only(EventPointerReleased, fn))
}

// OnClick registers a listener for EventPointerClicked.
func (n *Node) OnClick(fn func(*PointerEvent)) Handle {
	return n.Listeners().Pointer.Add(only(EventPointerClicked, fn))
}

// OnPointerEnter registers a listener for EventPointerEntered.
func (n *Node) OnPointerEnter(fn func(*PointerEvent)) Handle {
	return n.Listeners().Pointer.Add(only(EventPointerEntered, fn))
}

// OnPointerLeave registers a listener for EventPointerExited.
func (n *Node) OnPointerLeave(fn func(*PointerEvent)) Handle {
	return n.Listeners().Pointer.Add(only(EventPointerExited, fn))
}

// OnPointerMove registers a listener for EventPointerMoved.
func (n *Node) OnPointerMove(fn func(*PointerEvent)) Handle {
	return n.Listeners().Motion.Add(only(EventPointerMoved, fn))
}

// OnDrag registers a listener for EventPointerDragged.
func (n *Node) OnDrag(fn func(*PointerEvent)) Handle {
	return n.Listeners().Motion.Add(only(EventPointerDragged, fn))
}

// OnKeyDown registers a listener for EventKeyPressed.
func (n *Node) OnKeyDown(fn func(*KeyEvent)) Handle {
	return n.Listeners().Key.Add(only(EventKeyPressed, fn))
}

// OnFocusGained registers a listener for EventFocusGained.
func (n *Node) OnFocusGained(fn func(*FocusEvent)) Handle {
	return n.Listeners().Focus.Add(only(EventFocusGained, fn))
}

// OnFocusLost registers a listener for EventFocusLost.
func (n *Node) OnFocusLost(fn func(*FocusEvent)) Handle {
	return n.Listeners().Focus.Add(only(EventFocusLost, fn))
}

// OnShown registers a listener for EventShown.
func (n *Node) OnShown(fn func(*TreeEvent)) Handle {
	return n.Listeners().Visibility.Add(only(EventShown, fn))
}

// OnHidden registers a listener for EventHidden.
func (n *Node) OnHidden(fn func(*TreeEvent)) Handle {
	return n.Listeners().Visibility.Add(only(EventHidden, fn))
}

// FireValueChanged notifies the node's Value listeners that a named
// property changed. Widgets use it to publish their own state.
func (n *Node) FireValueChanged(name string, old, new any) {
	n.fireValue(EventValueChanged, name, old, new)
}

func (n *Node) fireValue(t EventType, name string, old, new any) {
	if n.listenersIfAny() == nil {
		return
	}
	e := &ValueEvent{EventBase: newBase(t, n), Name: name, Old: old, New: new}
	notifyAt(n, e, pickValue)
}

func (n *Node) fireGeometry(t EventType, name string, old, new any) {
	if n.listenersIfAny() == nil {
		return
	}
	e := &ValueEvent{EventBase: newBase(t, n), Name: name, Old: old, New: new}
	notifyAt(n, e, pickGeometry)
}

// --- Focus convenience ---

// RequestFocus asks the root stage's FocusManager to focus this node.
func (n *Node) RequestFocus() error {
	root := n.RootStage()
	if root == nil {
		return ErrNotOnStage
	}
	root.FocusManager().SetFocus(n, false)
	return nil
}

// IsFocused reports whether this node currently holds focus on its root stage.
func (n *Node) IsFocused() bool {
	root := n.RootStage()
	if root == nil {
		return false
	}
	return root.FocusManager().IsFocused(n)
}

// requestRepaint marks the node's root stage for repaint.
func (n *Node) requestRepaint() {
	if root := n.RootStage(); root != nil {
		root.RequestRepaint()
	}
}
