package shoal

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// EventType identifies a kind of event.
type EventType uint8

const (
	// Pointer category.
	EventPointerPressed  EventType = iota // a pointer button was pressed over the node
	EventPointerReleased                  // a pointer button was released over the node
	EventPointerClicked                   // press then release; ClickCount counts multi-clicks
	EventPointerEntered                   // the pointer moved onto the node
	EventPointerExited                    // the pointer moved off the node

	// Motion category.
	EventPointerMoved   // the pointer moved with no button held
	EventPointerDragged // the pointer moved with a button held

	// Wheel category.
	EventWheel // the scroll wheel turned over the node

	// Key category.
	EventKeyPressed  // a key went down while the node held focus
	EventKeyReleased // a key went up while the node held focus
	EventKeyTyped    // a character was typed while the node held focus

	// Focus category.
	EventFocusGained
	EventFocusLost

	// Tree category.
	EventParentChanged
	EventAddedToStage
	EventRemovedFromStage
	EventAddedToRootStage
	EventRemovedFromRootStage

	// Visibility category.
	EventShown  // the node became visible on a root stage
	EventHidden // the node stopped being visible on a root stage

	// Geometry category.
	EventMoved
	EventRecentered
	EventScaled
	EventRotated
	EventResized

	// Value category.
	EventValueChanged
	EventVisibilityChanged
	EventOpacityChanged

	// Animation category.
	EventEnteredFrame
	EventAnimationStopped

	eventTypeCount
)

var eventTypeNames = [eventTypeCount]string{
	EventPointerPressed:       "pointer-pressed",
	EventPointerReleased:      "pointer-released",
	EventPointerClicked:       "pointer-clicked",
	EventPointerEntered:       "pointer-entered",
	EventPointerExited:        "pointer-exited",
	EventPointerMoved:         "pointer-moved",
	EventPointerDragged:       "pointer-dragged",
	EventWheel:                "wheel",
	EventKeyPressed:           "key-pressed",
	EventKeyReleased:          "key-released",
	EventKeyTyped:             "key-typed",
	EventFocusGained:          "focus-gained",
	EventFocusLost:            "focus-lost",
	EventParentChanged:        "parent-changed",
	EventAddedToStage:         "added-to-stage",
	EventRemovedFromStage:     "removed-from-stage",
	EventAddedToRootStage:     "added-to-root-stage",
	EventRemovedFromRootStage: "removed-from-root-stage",
	EventShown:                "shown",
	EventHidden:               "hidden",
	EventMoved:                "moved",
	EventRecentered:           "recentered",
	EventScaled:               "scaled",
	EventRotated:              "rotated",
	EventResized:              "resized",
	EventValueChanged:         "value-changed",
	EventVisibilityChanged:    "visibility-changed",
	EventOpacityChanged:       "opacity-changed",
	EventEnteredFrame:         "entered-frame",
	EventAnimationStopped:     "animation-stopped",
}

func (t EventType) String() string {
	if t < eventTypeCount {
		return eventTypeNames[t]
	}
	return "unknown"
}

// Category groups event types that share a listener registry.
type Category uint8

const (
	CategoryPointer Category = iota
	CategoryMotion
	CategoryWheel
	CategoryKey
	CategoryFocus
	CategoryTree
	CategoryVisibility
	CategoryGeometry
	CategoryValue
	CategoryAnimation
)

var categoryNames = [...]string{
	CategoryPointer:    "pointer",
	CategoryMotion:     "motion",
	CategoryWheel:      "wheel",
	CategoryKey:        "key",
	CategoryFocus:      "focus",
	CategoryTree:       "tree",
	CategoryVisibility: "visibility",
	CategoryGeometry:   "geometry",
	CategoryValue:      "value",
	CategoryAnimation:  "animation",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Category returns the registry category events of this type are sent to.
func (t EventType) Category() Category {
	switch {
	case t <= EventPointerExited:
		return CategoryPointer
	case t <= EventPointerDragged:
		return CategoryMotion
	case t == EventWheel:
		return CategoryWheel
	case t <= EventKeyTyped:
		return CategoryKey
	case t <= EventFocusLost:
		return CategoryFocus
	case t <= EventRemovedFromRootStage:
		return CategoryTree
	case t <= EventHidden:
		return CategoryVisibility
	case t <= EventResized:
		return CategoryGeometry
	case t <= EventOpacityChanged:
		return CategoryValue
	default:
		return CategoryAnimation
	}
}

// Event is implemented by every typed event. Base exposes the shared
// dispatch state.
type Event interface {
	Base() *EventBase
}

// EventBase holds the fields common to all events and the propagation
// flags listeners use to steer dispatch.
type EventBase struct {
	Type EventType
	// Source is the node the event was produced for (the hit node for
	// pointer events, the focus holder for key events).
	Source *Node
	// CurrentTarget is the node whose listeners are running right now.
	CurrentTarget *Node
	When          time.Time

	consumed                    bool
	propagationStopped          bool
	immediatePropagationStopped bool
}

// Base returns b. Embedding EventBase makes a struct satisfy Event.
func (b *EventBase) Base() *EventBase { return b }

// Consume cancels default-tier handling of the event.
func (b *EventBase) Consume() { b.consumed = true }

// Consumed reports whether a listener consumed the event.
func (b *EventBase) Consumed() bool { return b.consumed }

// StopPropagation halts bubbling once the current node finishes notifying
// its listeners.
func (b *EventBase) StopPropagation() { b.propagationStopped = true }

// PropagationStopped reports whether bubbling has been halted.
func (b *EventBase) PropagationStopped() bool { return b.propagationStopped }

// StopImmediatePropagation halts bubbling and skips the remaining
// listeners of the current node.
func (b *EventBase) StopImmediatePropagation() {
	b.propagationStopped = true
	b.immediatePropagationStopped = true
}

// ImmediatePropagationStopped reports whether StopImmediatePropagation was called.
func (b *EventBase) ImmediatePropagationStopped() bool { return b.immediatePropagationStopped }

// PointerEvent carries pointer data. LocalX/LocalY are in the coordinate
// space of CurrentTarget and are refreshed at every bubbling step.
type PointerEvent struct {
	EventBase
	LocalX, LocalY   float64
	ScreenX, ScreenY float64
	Button           MouseButton
	ClickCount       int
	Modifiers        KeyModifiers
	// Related is the node the pointer came from (entered) or went to (exited).
	Related *Node
}

// WheelEvent carries scroll wheel deltas.
type WheelEvent struct {
	EventBase
	LocalX, LocalY   float64
	ScreenX, ScreenY float64
	DeltaX, DeltaY   float64
	Modifiers        KeyModifiers
}

// KeyEvent carries keyboard data. Char is set for EventKeyTyped only.
type KeyEvent struct {
	EventBase
	Code      ebiten.Key
	Char      rune
	Modifiers KeyModifiers
}

// FocusEvent is sent to the node losing or gaining focus. Related is the
// other party of the transfer; Temporary mirrors the SetFocus argument.
type FocusEvent struct {
	EventBase
	Related   *Node
	Temporary bool
}

// TreeEvent reports structural changes. For EventParentChanged, OldParent
// and NewParent are set; for stage transitions Stage names the stage that
// was left or joined.
type TreeEvent struct {
	EventBase
	OldParent *Node
	NewParent *Node
	Stage     *Stage
}

// ValueEvent reports a property change from Old to New. Geometry events use
// Vec2 (moved, recentered, scaled, resized) or float64 (rotated) values.
type ValueEvent struct {
	EventBase
	Name string
	Old  any
	New  any
}

// FrameEvent is sent by an Animation when its cursor enters a frame or the
// animation stops on its own.
type FrameEvent struct {
	EventBase
	Animation *Animation
	Index     int
	Previous  int
	Frame     Frame
}

func newBase(t EventType, source *Node) EventBase {
	return EventBase{Type: t, Source: source, CurrentTarget: source, When: time.Now()}
}
