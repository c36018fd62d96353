package shoal

import (
	"container/heap"
	"sync"
	"time"
)

// Task is a scheduled recurring callback.
type Task interface {
	// Cancel stops further runs. A run already in progress completes.
	Cancel()
	// Remaining returns the time until the next run, or 0 if overdue or
	// cancelled.
	Remaining() time.Duration
}

// Scheduler runs recurring callbacks. Animations share one so that a scene
// with many sprites costs a single goroutine.
type Scheduler interface {
	// Schedule runs fn after delay, then every period. A period <= 0 runs
	// fn once.
	Schedule(delay, period time.Duration, fn func()) Task
}

// TimerScheduler is a Scheduler backed by one goroutine and a min-heap of
// due times. Callbacks run on that goroutine, one at a time, in due order.
type TimerScheduler struct {
	mu     sync.Mutex
	tasks  taskHeap
	wake   chan struct{}
	done   chan struct{}
	closed sync.Once
}

// NewTimerScheduler starts a scheduler. Call Close to stop its goroutine.
func NewTimerScheduler() *TimerScheduler {
	s := &TimerScheduler{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

var (
	defaultScheduler     *TimerScheduler
	defaultSchedulerOnce sync.Once
)

// DefaultScheduler returns the process-wide scheduler used by animations
// that were not given one. It is started on first use and never closed.
func DefaultScheduler() *TimerScheduler {
	defaultSchedulerOnce.Do(func() {
		defaultScheduler = NewTimerScheduler()
	})
	return defaultScheduler
}

// Schedule implements Scheduler.
func (s *TimerScheduler) Schedule(delay, period time.Duration, fn func()) Task {
	t := &timerTask{s: s, fn: fn, period: period, next: time.Now().Add(max(delay, 0)), index: -1}
	s.mu.Lock()
	heap.Push(&s.tasks, t)
	s.mu.Unlock()
	s.signal()
	return t
}

// Len returns the number of queued tasks.
func (s *TimerScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close stops the scheduler goroutine. Queued tasks never run again.
func (s *TimerScheduler) Close() {
	s.closed.Do(func() { close(s.done) })
}

func (s *TimerScheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *TimerScheduler) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		due, wait := s.next()
		if due != nil {
			s.invoke(due)
			continue
		}
		timer.Reset(wait)
		select {
		case <-timer.C:
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

// next pops or reschedules the earliest task if it is due; otherwise it
// returns how long to sleep.
func (s *TimerScheduler) next() (*timerTask, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return nil, time.Hour
	}
	t := s.tasks[0]
	now := time.Now()
	if wait := t.next.Sub(now); wait > 0 {
		return nil, wait
	}
	if t.period > 0 {
		t.next = t.next.Add(t.period)
		if t.next.Before(now) {
			// Fell behind; skip the missed runs instead of bursting.
			t.next = now.Add(t.period)
		}
		heap.Fix(&s.tasks, 0)
	} else {
		heap.Pop(&s.tasks)
	}
	return t, 0
}

func (s *TimerScheduler) invoke(t *timerTask) {
	defer func() {
		if r := recover(); r != nil {
			tracer().Errorf("scheduler: task panicked: %v", r)
		}
	}()
	t.fn()
}

type timerTask struct {
	s      *TimerScheduler
	fn     func()
	period time.Duration
	next   time.Time
	index  int // position in the heap, -1 once removed
}

func (t *timerTask) Cancel() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.index >= 0 {
		heap.Remove(&t.s.tasks, t.index)
	}
}

func (t *timerTask) Remaining() time.Duration {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.index < 0 {
		return 0
	}
	return max(time.Until(t.next), 0)
}

type taskHeap []*timerTask

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].next.Before(h[j].next) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*timerTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
