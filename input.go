package shoal

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// PointerKind is the kind of a raw host pointer event.
type PointerKind uint8

const (
	PointerPress PointerKind = iota
	PointerRelease
	PointerMove
	PointerWheel
)

// RawPointerEvent is a pointer event as reported by the host, in surface
// coordinates. A zero When is replaced by the time of handling.
type RawPointerEvent struct {
	Kind           PointerKind
	X, Y           float64
	Button         MouseButton
	Modifiers      KeyModifiers
	When           time.Time
	WheelX, WheelY float64
}

// KeyKind is the kind of a raw host key event.
type KeyKind uint8

const (
	KeyPress KeyKind = iota
	KeyRelease
	KeyType
)

// RawKeyEvent is a keyboard event as reported by the host. Char is set for
// KeyType only.
type RawKeyEvent struct {
	Kind      KeyKind
	Code      ebiten.Key
	Char      rune
	Modifiers KeyModifiers
	When      time.Time
}

// InputPipeline turns raw host input into typed events on a root stage's
// tree. Pointer events are hit tested and bubbled from the topmost node
// under the pointer; key events bubble from the focus holder. Ingress is
// expected from one goroutine, the host loop; listeners run on it.
type InputPipeline struct {
	stage   *Stage
	session *InputSession
	queue   injectQueue
}

func newInputPipeline(s *Stage) *InputPipeline {
	return &InputPipeline{stage: s, session: NewInputSession(s.cfg.ClickTimeout)}
}

// Session returns the pipeline's pointer state.
func (p *InputPipeline) Session() *InputSession { return p.session }

// Pick returns the topmost node under the surface point (x, y), or nil.
func (p *InputPipeline) Pick(x, y float64) *Node {
	return pick(p.stage.node, x, y)
}

// HandlePointer dispatches one raw pointer event.
func (p *InputPipeline) HandlePointer(ev RawPointerEvent) {
	if ev.When.IsZero() {
		ev.When = time.Now()
	}
	target := p.Pick(ev.X, ev.Y)

	switch ev.Kind {
	case PointerMove:
		t := EventPointerMoved
		if p.session.ButtonsHeld() {
			t = EventPointerDragged
		}
		p.updateHover(target, ev)
		if target != nil {
			p.dispatchPointer(target, ev, 0, t)
		}
	case PointerPress:
		count := p.session.press(target, ev.Button, ev.When)
		if target != nil {
			p.dispatchPointer(target, ev, count, EventPointerPressed)
		}
	case PointerRelease:
		count := p.session.release(target, ev.Button, ev.When)
		if target != nil {
			p.dispatchPointer(target, ev, count, EventPointerReleased, EventPointerClicked)
		}
	case PointerWheel:
		if target != nil {
			p.dispatchWheel(target, ev)
		}
	}
}

// HandleKey dispatches one raw key event to the effective focus, or to the
// root stage when nothing holds focus, and bubbles it to the root.
func (p *InputPipeline) HandleKey(ev RawKeyEvent) {
	if ev.When.IsZero() {
		ev.When = time.Now()
	}
	target := p.stage.focus.EffectiveFocus()
	if target == nil {
		target = p.stage.node
	}
	t := EventKeyPressed
	switch ev.Kind {
	case KeyRelease:
		t = EventKeyReleased
	case KeyType:
		t = EventKeyTyped
	}
	e := &KeyEvent{EventBase: newBase(t, target), Code: ev.Code, Char: ev.Char, Modifiers: ev.Modifiers}
	e.When = ev.When
	Bubble(target, e, pickKey)
}

// dispatchPointer bubbles one event per type from target to the root. At
// every level the local coordinates are recomputed for that node, and an
// event whose propagation was stopped is not passed further up.
func (p *InputPipeline) dispatchPointer(target *Node, ev RawPointerEvent, clickCount int, types ...EventType) {
	events := make([]*PointerEvent, 0, len(types))
	for _, t := range types {
		e := &PointerEvent{
			EventBase:  newBase(t, target),
			ScreenX:    ev.X,
			ScreenY:    ev.Y,
			Button:     ev.Button,
			ClickCount: clickCount,
			Modifiers:  ev.Modifiers,
		}
		e.When = ev.When
		events = append(events, e)
	}

	for n := target; n != nil && len(events) > 0; n = n.Parent() {
		lx, ly := localPoint(n, ev.X, ev.Y)
		l := n.listenersIfAny()
		kept := events[:0]
		for _, e := range events {
			e.CurrentTarget = n
			e.LocalX, e.LocalY = lx, ly
			if l != nil {
				l.pointerRegistry(e.Type).Notify(e)
			}
			if !e.PropagationStopped() {
				kept = append(kept, e)
			}
		}
		events = kept
	}
}

func (p *InputPipeline) dispatchWheel(target *Node, ev RawPointerEvent) {
	e := &WheelEvent{
		EventBase: newBase(EventWheel, target),
		ScreenX:   ev.X,
		ScreenY:   ev.Y,
		DeltaX:    ev.WheelX,
		DeltaY:    ev.WheelY,
		Modifiers: ev.Modifiers,
	}
	e.When = ev.When
	for n := target; n != nil; n = n.Parent() {
		e.LocalX, e.LocalY = localPoint(n, ev.X, ev.Y)
		notifyAt(n, e, pickWheel)
		if e.PropagationStopped() {
			return
		}
	}
}

// updateHover sends exited to the previously hovered node and entered to
// target when they differ. Neither event bubbles.
func (p *InputPipeline) updateHover(target *Node, ev RawPointerEvent) {
	old, changed := p.session.setHovered(target)
	if !changed {
		return
	}
	if old != nil {
		p.notifyCrossing(old, target, EventPointerExited, ev)
	}
	if target != nil {
		p.notifyCrossing(target, old, EventPointerEntered, ev)
	}
}

func (p *InputPipeline) notifyCrossing(n, related *Node, t EventType, ev RawPointerEvent) {
	if n.listenersIfAny() == nil {
		return
	}
	lx, ly := localPoint(n, ev.X, ev.Y)
	e := &PointerEvent{
		EventBase: newBase(t, n),
		LocalX:    lx,
		LocalY:    ly,
		ScreenX:   ev.X,
		ScreenY:   ev.Y,
		Button:    ev.Button,
		Modifiers: ev.Modifiers,
		Related:   related,
	}
	e.When = ev.When
	notifyAt(n, e, pickPointer)
}

// localPoint maps a surface point into n's space. A degenerate transform
// maps everything to the origin.
func localPoint(n *Node, x, y float64) (float64, float64) {
	lx, ly, ok := n.GlobalToLocal(x, y)
	if !ok {
		tracer().Debugf("input: %q has a degenerate transform, using origin", n.Name())
		return 0, 0
	}
	return lx, ly
}
