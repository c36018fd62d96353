package shoal

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// PlayDirection is the direction an Animation's cursor moves in.
type PlayDirection int8

const (
	PlayForward  PlayDirection = 1
	PlayBackward PlayDirection = -1
)

func (d PlayDirection) String() string {
	if d == PlayBackward {
		return "backward"
	}
	return "forward"
}

// DefaultFrameRate is the frame rate of animations configured without one.
const DefaultFrameRate = 12

// AnimationConfig controls how an Animation plays. The zero value plays
// forward once at DefaultFrameRate on DefaultScheduler.
type AnimationConfig struct {
	FrameRate float64 // frames per second
	Repeat    bool
	Direction PlayDirection
	Scheduler Scheduler
}

// Animation is a time-driven cursor over one FrameSet. While running it is
// advanced by one recurring task on its scheduler. It is safe for
// concurrent use; listeners run on whichever goroutine moved the cursor.
type Animation struct {
	mu        sync.Mutex
	frames    *FrameSet
	sched     Scheduler
	current   int
	target    int // -1 when not running to a frame
	direction PlayDirection
	frameRate float64
	repeat    bool
	task      Task
	gen       uint64 // bumped on every (re)schedule so stale ticks are ignored

	// Events receives EventEnteredFrame and EventAnimationStopped.
	Events Registry[*FrameEvent]
}

// NewAnimation binds an animation to frames for its whole lifetime. The
// cursor starts on the first frame for the configured direction.
func NewAnimation(frames *FrameSet, cfg AnimationConfig) (*Animation, error) {
	if frames == nil {
		return nil, fmt.Errorf("shoal: nil frame set: %w", ErrInvalidArgument)
	}
	if cfg.FrameRate < 0 {
		return nil, fmt.Errorf("shoal: frame rate %v: %w", cfg.FrameRate, ErrFrameRate)
	}
	a := &Animation{
		frames:    frames,
		sched:     cfg.Scheduler,
		target:    -1,
		direction: cfg.Direction,
		frameRate: cfg.FrameRate,
		repeat:    cfg.Repeat,
	}
	if a.frameRate == 0 {
		a.frameRate = DefaultFrameRate
	}
	if a.direction != PlayBackward {
		a.direction = PlayForward
	}
	if a.sched == nil {
		a.sched = DefaultScheduler()
	}
	a.current = a.first(frames.Len())
	return a, nil
}

// FrameSet returns the frames the animation plays.
func (a *Animation) FrameSet() *FrameSet { return a.frames }

// OnEnteredFrame registers fn for EventEnteredFrame.
func (a *Animation) OnEnteredFrame(fn func(*FrameEvent)) Handle {
	return a.Events.Add(only(EventEnteredFrame, fn))
}

// OnStopped registers fn for EventAnimationStopped, sent when the animation
// stops on its own: at a boundary without repeat, or on reaching the frame
// given to RunToFrameIndex.
func (a *Animation) OnStopped(fn func(*FrameEvent)) Handle {
	return a.Events.Add(only(EventAnimationStopped, fn))
}

// Start rewinds to the first frame for the current direction and starts
// playing, restarting the schedule if already running.
func (a *Animation) Start() error {
	a.mu.Lock()
	n := a.frames.Len()
	if n == 0 {
		a.mu.Unlock()
		return fmt.Errorf("shoal: start empty animation: %w", ErrFrameIndex)
	}
	prev := a.current
	a.current = a.first(n)
	a.target = -1
	a.schedule(a.period())
	cur := a.current
	a.mu.Unlock()

	if prev != cur {
		a.fireEntered(prev, cur)
	}
	return nil
}

// Stop halts playback, keeping the cursor where it is.
func (a *Animation) Stop() {
	a.mu.Lock()
	a.stop()
	a.mu.Unlock()
}

// Running reports whether the animation is scheduled.
func (a *Animation) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.task != nil
}

// CurrentIndex returns the cursor position.
func (a *Animation) CurrentIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// CurrentFrame returns the frame under the cursor.
func (a *Animation) CurrentFrame() (Frame, error) {
	return a.frames.Frame(a.CurrentIndex())
}

// Target returns the frame RunToFrameIndex is heading for, or -1.
func (a *Animation) Target() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// Direction returns the play direction.
func (a *Animation) Direction() PlayDirection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.direction
}

// SetDirection sets the play direction. It takes effect on the next step.
func (a *Animation) SetDirection(d PlayDirection) {
	if d != PlayBackward {
		d = PlayForward
	}
	a.mu.Lock()
	a.direction = d
	a.mu.Unlock()
}

// Repeat reports whether the cursor wraps at the ends.
func (a *Animation) Repeat() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repeat
}

// SetRepeat sets whether the cursor wraps at the ends.
func (a *Animation) SetRepeat(r bool) {
	a.mu.Lock()
	a.repeat = r
	a.mu.Unlock()
}

// FrameRate returns the frame rate in frames per second.
func (a *Animation) FrameRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frameRate
}

// SetFrameRate changes the frame rate. A running animation keeps its phase:
// the time left until its next tick carries over, capped at the new period.
func (a *Animation) SetFrameRate(fps float64) error {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return fmt.Errorf("shoal: frame rate %v: %w", fps, ErrFrameRate)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frameRate == fps {
		return nil
	}
	a.frameRate = fps
	if a.task == nil {
		return nil
	}
	delay := min(a.task.Remaining(), a.period())
	a.schedule(delay)
	tracer().Debugf("animation: frame rate %.2f, next tick in %v", fps, delay)
	return nil
}

// GotoFrameIndex moves the cursor to index immediately.
func (a *Animation) GotoFrameIndex(index int) error {
	a.mu.Lock()
	if err := a.checkIndex(index); err != nil {
		a.mu.Unlock()
		return err
	}
	prev := a.current
	a.current = index
	a.mu.Unlock()

	if prev != index {
		a.fireEntered(prev, index)
	}
	return nil
}

// GotoFrameName moves the cursor to the frame called name.
func (a *Animation) GotoFrameName(name string) error {
	i, err := a.frames.IndexOf(name)
	if err != nil {
		return err
	}
	return a.GotoFrameIndex(i)
}

// NextFrame steps one frame in the play direction.
func (a *Animation) NextFrame() error {
	return a.stepBy(1)
}

// PreviousFrame steps one frame against the play direction.
func (a *Animation) PreviousFrame() error {
	return a.stepBy(-1)
}

func (a *Animation) stepBy(sign int) error {
	a.mu.Lock()
	prev := a.current
	next, ok := a.step(sign * int(a.direction))
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("shoal: step from frame %d: %w", prev, ErrAtBoundary)
	}
	a.current = next
	a.mu.Unlock()

	if prev != next {
		a.fireEntered(prev, next)
	}
	return nil
}

// RunToFrameIndex plays towards index and stops once the cursor lands on
// it. A stopped animation is started from where its cursor is. If the
// cursor is already on index the animation is stopped.
func (a *Animation) RunToFrameIndex(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkIndex(index); err != nil {
		return err
	}
	if a.current == index {
		a.stop()
		return nil
	}
	a.target = index
	if a.task == nil {
		a.schedule(a.period())
	}
	return nil
}

// RunToFrameName plays towards the frame called name.
func (a *Animation) RunToFrameName(name string) error {
	i, err := a.frames.IndexOf(name)
	if err != nil {
		return err
	}
	return a.RunToFrameIndex(i)
}

// tick is the scheduled step. gen identifies the schedule it belongs to.
func (a *Animation) tick(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.task == nil {
		a.mu.Unlock()
		return
	}
	animationTicks.Inc()
	prev := a.current
	if a.target == prev {
		a.stop()
		a.mu.Unlock()
		a.fireStopped(prev)
		return
	}
	next, ok := a.step(int(a.direction))
	if !ok {
		a.stop()
		a.mu.Unlock()
		a.fireStopped(prev)
		return
	}
	a.current = next
	reached := a.target == next
	if reached {
		a.stop()
	}
	a.mu.Unlock()

	a.fireEntered(prev, next)
	if reached {
		a.fireStopped(next)
	}
}

// --- locked helpers; caller holds a.mu ---

func (a *Animation) first(n int) int {
	if a.direction == PlayBackward && n > 0 {
		return n - 1
	}
	return 0
}

// step returns the index delta frames away, wrapping when repeating.
func (a *Animation) step(delta int) (int, bool) {
	n := a.frames.Len()
	if n == 0 {
		return a.current, false
	}
	next := a.current + delta
	if next >= 0 && next < n {
		return next, true
	}
	if !a.repeat {
		return a.current, false
	}
	return ((next % n) + n) % n, true
}

func (a *Animation) checkIndex(index int) error {
	if n := a.frames.Len(); index < 0 || index >= n {
		return fmt.Errorf("shoal: frame %d of %d: %w", index, n, ErrFrameIndex)
	}
	return nil
}

func (a *Animation) period() time.Duration {
	ms := math.Round(1000 / a.frameRate)
	return time.Duration(max(ms, 1)) * time.Millisecond
}

func (a *Animation) schedule(delay time.Duration) {
	if a.task != nil {
		a.task.Cancel()
	}
	a.gen++
	gen := a.gen
	a.task = a.sched.Schedule(delay, a.period(), func() { a.tick(gen) })
}

func (a *Animation) stop() {
	if a.task != nil {
		a.task.Cancel()
		a.task = nil
	}
	a.gen++
	a.target = -1
}

// --- events; called without a.mu ---

func (a *Animation) fireEntered(prev, cur int) {
	f, _ := a.frames.Frame(cur)
	e := &FrameEvent{EventBase: newBase(EventEnteredFrame, nil), Animation: a, Index: cur, Previous: prev, Frame: f}
	a.Events.Notify(e)
}

func (a *Animation) fireStopped(at int) {
	f, _ := a.frames.Frame(at)
	e := &FrameEvent{EventBase: newBase(EventAnimationStopped, nil), Animation: a, Index: at, Previous: at, Frame: f}
	a.Events.Notify(e)
}
