package shoal

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func focusable(name string, tab int) *Node {
	n := NewContainer(name)
	n.SetFocusable(true)
	n.SetTabIndex(tab)
	return n
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

type focusLog []string

func (l *focusLog) watch(nodes ...*Node) {
	for _, n := range nodes {
		n.Listeners().Focus.Add(func(e *FocusEvent) {
			rel := "-"
			if e.Related != nil {
				rel = e.Related.Name()
			}
			*l = append(*l, fmt.Sprintf("%s:%s:%s:%v", e.Source.Name(), e.Type, rel, e.Temporary))
		})
	}
}

// --- Tab order ---

func TestTabOrder(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	for i, tab := range []int{2, 0, 1, 0} {
		_ = s.AddChild(focusable(fmt.Sprintf("n%d", i), tab))
	}
	_ = s.AddChild(focusable("skipped", -1))
	_ = s.AddChild(NewContainer("plain"))

	hidden := NewContainer("hidden")
	_ = hidden.AddChild(focusable("inside-hidden", 1))
	_ = s.AddChild(hidden)
	_ = hidden.SetVisible(false)

	group := NewContainer("group")
	_ = group.AddChild(focusable("nested", 3))
	_ = s.AddChild(group)

	got := names(s.FocusManager().TabOrder(s.Node()))
	want := []string{"n2", "n0", "nested", "n1", "n3"}
	if !slices.Equal(got, want) {
		t.Errorf("tab order = %v, want %v", got, want)
	}
	if s.FocusManager().TabOrder(nil) != nil {
		t.Error("nil root should give no order")
	}
}

func TestTabOrderLargeIndexes(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	_ = s.AddChild(focusable("zero", 0))
	_ = s.AddChild(focusable("huge", math.MaxInt))
	_ = s.AddChild(focusable("one", 1))

	got := names(s.FocusManager().TabOrder(s.Node()))
	want := []string{"one", "huge", "zero"}
	if !slices.Equal(got, want) {
		t.Errorf("tab order = %v, want %v", got, want)
	}
}

func TestCompareTabIndex(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{1, 2, -1},
		{2, 1, 1},
		{3, 3, 0},
		{0, 0, 0},
		{0, 5, 1},
		{5, 0, -1},
		{math.MaxInt, 0, -1},
		{math.MinInt, math.MaxInt, -1},
	}
	for _, tt := range tests {
		if got := compareTabIndex(tt.a, tt.b); got != tt.want {
			t.Errorf("compareTabIndex(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFocusNextTabbableWraps(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	a, b, c := focusable("a", 1), focusable("b", 2), focusable("c", 3)
	for _, n := range []*Node{a, b, c} {
		_ = s.AddChild(n)
	}
	fm := s.FocusManager()

	var got []string
	for i := 0; i < 4; i++ {
		ok, err := fm.FocusNextTabbable(s.Node(), true)
		if err != nil || !ok {
			t.Fatalf("forward %d: ok = %v, err = %v", i, ok, err)
		}
		got = append(got, fm.Focus().Name())
	}
	if !slices.Equal(got, []string{"a", "b", "c", "a"}) {
		t.Errorf("forward = %v", got)
	}

	got = nil
	for i := 0; i < 2; i++ {
		_, _ = fm.FocusNextTabbable(s.Node(), false)
		got = append(got, fm.Focus().Name())
	}
	if !slices.Equal(got, []string{"c", "b"}) {
		t.Errorf("backward = %v", got)
	}
}

func TestFocusNextTabbableBackwardFromNothing(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	_ = s.AddChild(focusable("a", 1))
	_ = s.AddChild(focusable("b", 2))
	fm := s.FocusManager()
	if _, err := fm.FocusNextTabbable(s.Node(), false); err != nil {
		t.Fatal(err)
	}
	if fm.Focus().Name() != "b" {
		t.Errorf("focus = %v, want b", fm.Focus())
	}
}

func TestFocusNextTabbableErrors(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	fm := s.FocusManager()
	if _, err := fm.FocusNextTabbable(nil, true); !errors.Is(err, ErrNilNode) {
		t.Errorf("nil root: err = %v", err)
	}
	if _, err := fm.FocusNextTabbable(NewContainer("loose"), true); !errors.Is(err, ErrNotOnStage) {
		t.Errorf("detached root: err = %v", err)
	}
	other := NewStage(StageConfig{Width: 10, Height: 10})
	if _, err := fm.FocusNextTabbable(other.Node(), true); !errors.Is(err, ErrNotOnStage) {
		t.Errorf("other stage: err = %v", err)
	}
}

func TestFocusNextTabbableFallsBackToRoot(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	panel := focusable("panel", 0)
	_ = s.AddChild(panel)
	fm := s.FocusManager()

	ok, err := fm.FocusNextTabbable(panel, true)
	if err != nil || !ok || fm.Focus() != panel {
		t.Errorf("ok = %v, err = %v, focus = %v", ok, err, fm.Focus())
	}

	plain := NewContainer("plain")
	_ = s.AddChild(plain)
	ok, err = fm.FocusNextTabbable(plain, true)
	if err != nil || ok {
		t.Errorf("non-focusable root: ok = %v, err = %v", ok, err)
	}
}

// --- SetFocus ---

func TestSetFocusIgnoresUnfocusable(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	n := NewContainer("n")
	_ = s.AddChild(n)
	s.FocusManager().SetFocus(n, false)
	if s.FocusManager().Focus() != nil {
		t.Error("non-focusable node took focus")
	}
}

func TestSetFocusIgnoresOtherRootStage(t *testing.T) {
	s1 := NewStage(StageConfig{Width: 10, Height: 10})
	s2 := NewStage(StageConfig{Width: 10, Height: 10})
	n := focusable("n", 0)
	_ = s2.AddChild(n)
	s1.FocusManager().SetFocus(n, false)
	if s1.FocusManager().Focus() != nil || s1.FocusManager().PendingFocus() != nil {
		t.Error("focus crossed root stages")
	}
}

func TestRequestFocusDetached(t *testing.T) {
	n := focusable("n", 0)
	if err := n.RequestFocus(); !errors.Is(err, ErrNotOnStage) {
		t.Errorf("err = %v", err)
	}
	if n.IsFocused() {
		t.Error("detached node reports focus")
	}
}

func TestPendingFocusTakesEffectWhenShown(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	n := focusable("n", 0)
	_ = s.AddChild(n)
	_ = n.SetVisible(false)
	fm := s.FocusManager()

	before := testutil.ToFloat64(deferredFocus)
	fm.SetFocus(n, false)
	if fm.Focus() != nil || fm.PendingFocus() != n {
		t.Fatalf("focus = %v, pending = %v", fm.Focus(), fm.PendingFocus())
	}
	if got := testutil.ToFloat64(deferredFocus) - before; got != 1 {
		t.Errorf("deferred counted %v", got)
	}

	_ = n.SetVisible(true)
	if fm.Focus() != n || fm.PendingFocus() != nil {
		t.Errorf("after show: focus = %v, pending = %v", fm.Focus(), fm.PendingFocus())
	}
	// Only the holder's auto-clear listener remains.
	if l, _ := n.Listeners().Visibility.Len(); l != 1 {
		t.Errorf("%d visibility listeners, want 1", l)
	}
}

func TestPendingFocusOnDetachedNode(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	n := focusable("n", 0)
	s.FocusManager().SetFocus(n, false)
	if s.FocusManager().PendingFocus() != n {
		t.Fatal("detached node not pending")
	}
	_ = s.AddChild(n)
	if s.FocusManager().Focus() != n {
		t.Errorf("focus = %v after attach", s.FocusManager().Focus())
	}
}

func TestNewerRequestCancelsPending(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	a, b := focusable("a", 0), focusable("b", 0)
	_ = s.AddChild(a)
	_ = s.AddChild(b)
	_ = a.SetVisible(false)
	_ = b.SetVisible(false)
	fm := s.FocusManager()

	fm.SetFocus(a, false)
	fm.SetFocus(b, false)
	_ = a.SetVisible(true)
	if fm.Focus() != nil {
		t.Fatalf("cancelled request won: focus = %v", fm.Focus())
	}
	_ = b.SetVisible(true)
	if fm.Focus() != b {
		t.Errorf("focus = %v, want b", fm.Focus())
	}
}

func TestShowingRequestCancelsPending(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	a, b := focusable("a", 0), focusable("b", 0)
	_ = s.AddChild(a)
	_ = s.AddChild(b)
	_ = a.SetVisible(false)
	fm := s.FocusManager()

	fm.SetFocus(a, false)
	fm.SetFocus(b, false)
	if fm.PendingFocus() != nil || fm.Focus() != b {
		t.Fatalf("focus = %v, pending = %v", fm.Focus(), fm.PendingFocus())
	}
	_ = a.SetVisible(true)
	if fm.Focus() != b {
		t.Errorf("stale pending request stole focus")
	}
}

func TestSetFocusNilClears(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	a, b := focusable("a", 0), focusable("b", 0)
	_ = s.AddChild(a)
	_ = s.AddChild(b)
	_ = b.SetVisible(false)
	fm := s.FocusManager()
	fm.SetFocus(a, false)
	fm.SetFocus(b, false)
	fm.SetFocus(nil, false)
	if fm.Focus() != nil || fm.PendingFocus() != nil {
		t.Errorf("focus = %v, pending = %v", fm.Focus(), fm.PendingFocus())
	}
}

// --- Auto-clear ---

func TestFocusClearedWhenHidden(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	panel := NewContainer("panel")
	field := focusable("field", 0)
	_ = panel.AddChild(field)
	_ = s.AddChild(panel)
	fm := s.FocusManager()
	fm.SetFocus(field, false)

	_ = panel.SetVisible(false)
	if fm.Focus() != nil {
		t.Errorf("focus = %v after hiding the ancestor", fm.Focus())
	}
	_ = panel.SetVisible(true)
	if fm.Focus() != nil {
		t.Error("focus came back on its own")
	}
}

func TestFocusClearedWhenRemoved(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	n := focusable("n", 0)
	_ = s.AddChild(n)
	fm := s.FocusManager()
	fm.SetFocus(n, false)
	_ = s.RemoveChild(n)
	if fm.Focus() != nil {
		t.Errorf("focus = %v after removal", fm.Focus())
	}
	if l, _ := n.Listeners().Tree.Len(); l != 0 {
		t.Errorf("%d tree listeners left on the removed node", l)
	}
}

func TestFocusWatchMovesWithHolder(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	a, b := focusable("a", 0), focusable("b", 0)
	_ = s.AddChild(a)
	_ = s.AddChild(b)
	fm := s.FocusManager()
	fm.SetFocus(a, false)
	fm.SetFocus(b, false)
	_ = a.SetVisible(false)
	if fm.Focus() != b {
		t.Errorf("hiding the old holder cleared focus: %v", fm.Focus())
	}
}

// --- System focus and events ---

func TestFocusEventsNeedSystemFocus(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	a, b := focusable("a", 0), focusable("b", 0)
	_ = s.AddChild(a)
	_ = s.AddChild(b)
	fm := s.FocusManager()
	var log focusLog
	log.watch(a, b)

	if fm.HasSystemFocus() {
		t.Fatal("system focus should start false")
	}
	fm.SetFocus(a, false)
	if len(log) != 0 {
		t.Fatalf("events without system focus: %v", log)
	}
	if fm.CurrentFocus() != nil || fm.EffectiveFocus() != a {
		t.Error("current focus needs system focus; effective focus does not")
	}

	fm.SetSystemFocus(true)
	fm.SetSystemFocus(true)
	fm.SetFocus(b, true)
	fm.SetSystemFocus(false)

	want := []string{
		"a:focus-gained:-:true",
		"a:focus-lost:b:true",
		"b:focus-gained:a:true",
		"b:focus-lost:-:true",
	}
	if !slices.Equal(log, want) {
		t.Errorf("events:\n got %v\nwant %v", log, want)
	}
}

func TestFocusLostOnHide(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	n := focusable("n", 0)
	_ = s.AddChild(n)
	fm := s.FocusManager()
	fm.SetSystemFocus(true)
	fm.SetFocus(n, false)
	var log focusLog
	log.watch(n)
	_ = n.SetVisible(false)
	if !slices.Equal(log, []string{"n:focus-lost:-:false"}) {
		t.Errorf("events = %v", log)
	}
}

func TestIsDescendantFocused(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	panel := NewContainer("panel")
	field := focusable("field", 0)
	other := NewContainer("other")
	_ = panel.AddChild(field)
	_ = s.AddChild(panel)
	_ = s.AddChild(other)
	fm := s.FocusManager()
	fm.SetSystemFocus(true)
	if err := field.RequestFocus(); err != nil {
		t.Fatal(err)
	}

	if !field.IsFocused() || !fm.IsFocused(field) {
		t.Error("field should be focused")
	}
	if !fm.IsDescendantFocused(panel) || !fm.IsDescendantFocused(s.Node()) || !fm.IsDescendantFocused(field) {
		t.Error("ancestors should report a focused descendant")
	}
	if fm.IsDescendantFocused(other) || fm.IsFocused(panel) {
		t.Error("unrelated nodes report focus")
	}
}

func TestNestedStageDelegatesFocusManager(t *testing.T) {
	s := NewStage(StageConfig{Width: 10, Height: 10})
	tank := NewNestedStage("tank", 5, 5)
	if tank.FocusManager() != nil || tank.Input() != nil {
		t.Fatal("detached nested stage has a focus manager")
	}
	_ = s.AddChild(tank.Node())
	if tank.FocusManager() != s.FocusManager() || tank.Input() != s.Input() {
		t.Error("nested stage does not delegate to its root")
	}
	if tank.RootStage() != s || tank.IsRootStage() {
		t.Error("nested stage root mismatch")
	}
}

func TestSetFocusFromSchedulerCallback(t *testing.T) {
	sched := NewTimerScheduler()
	defer sched.Close()
	s := NewStage(StageConfig{Width: 10, Height: 10})
	fm := s.FocusManager()
	fm.SetSystemFocus(true)
	a, b, late := focusable("a", 1), focusable("b", 2), focusable("late", 3)
	for _, n := range []*Node{a, b, late} {
		_ = s.AddChild(n)
	}
	_ = late.SetVisible(false)

	var gained atomic.Int32
	for _, n := range []*Node{a, b, late} {
		n.OnFocusGained(func(*FocusEvent) { gained.Add(1) })
	}

	done := make(chan struct{})
	var turns atomic.Int32
	task := sched.Schedule(0, time.Millisecond, func() {
		switch turns.Add(1) {
		case 1:
			fm.SetFocus(a, false)
		case 2:
			fm.SetFocus(b, false)
		case 3:
			fm.SetFocus(late, false)
			close(done)
		}
	})
	defer task.Cancel()

	timeout := time.After(2 * time.Second)
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		case <-timeout:
			t.Fatalf("scheduler ran %d focus turns", turns.Load())
		default:
			_ = fm.EffectiveFocus()
			_ = fm.IsDescendantFocused(s.Node())
			_ = fm.TabOrder(s.Node())
		}
	}

	if fm.Focus() != b || fm.PendingFocus() != late {
		t.Fatalf("focus = %v, pending = %v", fm.Focus(), fm.PendingFocus())
	}
	_ = late.SetVisible(true)
	if fm.Focus() != late || fm.PendingFocus() != nil {
		t.Errorf("after show: focus = %v, pending = %v", fm.Focus(), fm.PendingFocus())
	}
	if got := gained.Load(); got != 3 {
		t.Errorf("focus gained %d times, want 3", got)
	}
}
