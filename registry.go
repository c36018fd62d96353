package shoal

import (
	"slices"
	"sync"
)

type listenerEntry[E Event] struct {
	id uint64
	fn func(E)
}

// Registry holds the listeners of one event category. It keeps two tiers:
// regular listeners, notified first in registration order, and default
// listeners, notified afterwards only while the event is not consumed.
// Default listeners are prepended, so a later AddDefault runs before an
// earlier one. The zero value is ready to use.
type Registry[E Event] struct {
	mu        sync.Mutex
	listeners []listenerEntry[E]
	defaults  []listenerEntry[E]
	nextID    uint64
}

// Handle allows removing a registered listener.
type Handle struct {
	id  uint64
	reg interface{ remove(id uint64) }
}

// Remove unregisters the listener so it no longer fires. Safe to call more
// than once and from inside the listener itself.
func (h Handle) Remove() {
	if h.reg == nil {
		return
	}
	h.reg.remove(h.id)
}

// Add appends a regular listener.
func (r *Registry[E]) Add(fn func(E)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.listeners = append(r.listeners, listenerEntry[E]{id: r.nextID, fn: fn})
	return Handle{id: r.nextID, reg: r}
}

// AddDefault prepends a default listener.
func (r *Registry[E]) AddDefault(fn func(E)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.defaults = slices.Insert(r.defaults, 0, listenerEntry[E]{id: r.nextID, fn: fn})
	return Handle{id: r.nextID, reg: r}
}

func (r *Registry[E]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match := func(e listenerEntry[E]) bool { return e.id == id }
	r.listeners = slices.DeleteFunc(r.listeners, match)
	r.defaults = slices.DeleteFunc(r.defaults, match)
}

// Len returns the number of regular and default listeners.
func (r *Registry[E]) Len() (listeners, defaults int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners), len(r.defaults)
}

// Notify delivers e to this registry's listeners. Listeners added or removed
// while Notify runs take effect on the next event.
func (r *Registry[E]) Notify(e E) {
	r.mu.Lock()
	if len(r.listeners) == 0 && len(r.defaults) == 0 {
		r.mu.Unlock()
		return
	}
	ls := slices.Clone(r.listeners)
	ds := slices.Clone(r.defaults)
	r.mu.Unlock()

	b := e.Base()
	countDispatch(b.Type)
	for _, l := range ls {
		l.fn(e)
		if b.immediatePropagationStopped {
			return
		}
	}
	for _, l := range ds {
		if b.consumed {
			return
		}
		l.fn(e)
		if b.immediatePropagationStopped {
			return
		}
	}
}

// Listeners groups a node's registries, one per event category.
type Listeners struct {
	Pointer    Registry[*PointerEvent] // pressed, released, clicked, entered, exited
	Motion     Registry[*PointerEvent] // moved, dragged
	Wheel      Registry[*WheelEvent]
	Key        Registry[*KeyEvent]
	Focus      Registry[*FocusEvent]
	Tree       Registry[*TreeEvent] // parent and stage membership changes
	Visibility Registry[*TreeEvent] // shown, hidden
	Geometry   Registry[*ValueEvent]
	Value      Registry[*ValueEvent]
}

// pointerRegistry selects the registry pointer event type t is delivered to.
func (l *Listeners) pointerRegistry(t EventType) *Registry[*PointerEvent] {
	if t.Category() == CategoryMotion {
		return &l.Motion
	}
	return &l.Pointer
}

// Bubble notifies the registry chosen by pick at start, then at each
// ancestor in turn, until propagation is stopped or the root is passed.
func Bubble[E Event](start *Node, e E, pick func(*Listeners) *Registry[E]) {
	b := e.Base()
	for n := start; n != nil; n = n.Parent() {
		b.CurrentTarget = n
		if l := n.listenersIfAny(); l != nil {
			pick(l).Notify(e)
		}
		if b.propagationStopped {
			return
		}
	}
}

// notifyAt delivers e to a single node without bubbling.
func notifyAt[E Event](n *Node, e E, pick func(*Listeners) *Registry[E]) {
	if n == nil {
		return
	}
	e.Base().CurrentTarget = n
	if l := n.listenersIfAny(); l != nil {
		pick(l).Notify(e)
	}
}

// only wraps fn so it runs for events of type t only.
func only[E Event](t EventType, fn func(E)) func(E) {
	return func(e E) {
		if e.Base().Type == t {
			fn(e)
		}
	}
}

func pickPointer(l *Listeners) *Registry[*PointerEvent] { return &l.Pointer }
func pickWheel(l *Listeners) *Registry[*WheelEvent] { return &l.Wheel }
func pickKey(l *Listeners) *Registry[*KeyEvent] { return &l.Key }
func pickFocus(l *Listeners) *Registry[*FocusEvent] { return &l.Focus }
func pickTree(l *Listeners) *Registry[*TreeEvent] { return &l.Tree }
func pickVisibility(l *Listeners) *Registry[*TreeEvent] { return &l.Visibility }
func pickGeometry(l *Listeners) *Registry[*ValueEvent] { return &l.Geometry }
func pickValue(l *Listeners) *Registry[*ValueEvent] { return &l.Value }
