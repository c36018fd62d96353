package shoal

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// syntheticEvent is one queued injected event: either a pointer or a key.
type syntheticEvent struct {
	pointer *RawPointerEvent
	key     *RawKeyEvent
}

// injectQueue holds synthetic input consumed one event per frame, so an
// injected press and release land on different frames like real input.
type injectQueue struct {
	mu     sync.Mutex
	events []syntheticEvent
}

func (q *injectQueue) push(e syntheticEvent) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

func (q *injectQueue) pop() (syntheticEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return syntheticEvent{}, false
	}
	e := q.events[0]
	q.events[0] = syntheticEvent{}
	q.events = q.events[1:]
	return e, true
}

func (q *injectQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// InjectPress queues a left button press at the given surface coordinates.
func (p *InputPipeline) InjectPress(x, y float64) {
	p.queue.push(syntheticEvent{pointer: &RawPointerEvent{Kind: PointerPress, X: x, Y: y, Button: MouseButtonLeft}})
}

// InjectMove queues a pointer move. Between InjectPress and InjectRelease
// it produces drag events.
func (p *InputPipeline) InjectMove(x, y float64) {
	p.queue.push(syntheticEvent{pointer: &RawPointerEvent{Kind: PointerMove, X: x, Y: y}})
}

// InjectRelease queues a left button release.
func (p *InputPipeline) InjectRelease(x, y float64) {
	p.queue.push(syntheticEvent{pointer: &RawPointerEvent{Kind: PointerRelease, X: x, Y: y, Button: MouseButtonLeft}})
}

// InjectClick queues a press followed by a release at the same point.
func (p *InputPipeline) InjectClick(x, y float64) {
	p.InjectPress(x, y)
	p.InjectRelease(x, y)
}

// InjectDrag queues a press at the start point, frames-2 interpolated
// moves and a release at the end point. The sequence spans frames frames
// (at least 2).
func (p *InputPipeline) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	frames = max(frames, 2)
	p.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		p.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	p.InjectRelease(toX, toY)
}

// InjectKey queues a press and release of key.
func (p *InputPipeline) InjectKey(key ebiten.Key, mods KeyModifiers) {
	p.queue.push(syntheticEvent{key: &RawKeyEvent{Kind: KeyPress, Code: key, Modifiers: mods}})
	p.queue.push(syntheticEvent{key: &RawKeyEvent{Kind: KeyRelease, Code: key, Modifiers: mods}})
}

// InjectText queues a typed event per rune of s.
func (p *InputPipeline) InjectText(s string) {
	for _, r := range s {
		p.queue.push(syntheticEvent{key: &RawKeyEvent{Kind: KeyType, Char: r}})
	}
}

// Pending returns the number of queued synthetic events.
func (p *InputPipeline) Pending() int { return p.queue.len() }

// ProcessInjected handles one queued synthetic event. It reports whether an
// event was handled, in which case the host skips real pointer input for
// the frame.
func (p *InputPipeline) ProcessInjected() bool {
	e, ok := p.queue.pop()
	if !ok {
		return false
	}
	switch {
	case e.pointer != nil:
		p.HandlePointer(*e.pointer)
	case e.key != nil:
		p.HandleKey(*e.key)
	}
	return true
}
