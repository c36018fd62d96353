package shoal

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// treeLog records tree and visibility events as "name:type" strings.
type treeLog struct {
	events []string
}

func (l *treeLog) watch(nodes ...*Node) {
	for _, n := range nodes {
		rec := func(e *TreeEvent) {
			l.events = append(l.events, e.Source.Name()+":"+e.Type.String())
		}
		n.Listeners().Tree.Add(rec)
		n.Listeners().Visibility.Add(rec)
	}
}

func (l *treeLog) count(entry string) int {
	c := 0
	for _, e := range l.events {
		if e == entry {
			c++
		}
	}
	return c
}

// --- Constructor defaults ---

func TestNewContainerDefaults(t *testing.T) {
	n := NewContainer("test")
	assertNodeDefaults(t, n, "test", NodeTypeContainer)
}

func TestNewFillDefaults(t *testing.T) {
	n := NewFill("fill", 30, -5, Color{R: 1, A: 1})
	assertNodeDefaults(t, n, "fill", NodeTypeFill)
	if w, h := n.UnscaledSize(); w != 30 || h != 0 {
		t.Errorf("size = (%v, %v), want (30, 0)", w, h)
	}
	if n.Paint == nil {
		t.Error("fill has no paint hook")
	}
}

func assertNodeDefaults(t *testing.T, n *Node, name string, typ NodeType) {
	t.Helper()
	if n.ID() == 0 {
		t.Error("ID should be non-zero")
	}
	if n.Name() != name {
		t.Errorf("Name = %q, want %q", n.Name(), name)
	}
	if n.Type() != typ {
		t.Errorf("Type = %v, want %v", n.Type(), typ)
	}
	if sx, sy := n.Scale(); sx != 1 || sy != 1 {
		t.Errorf("Scale = (%v, %v), want (1, 1)", sx, sy)
	}
	if n.Opacity() != 1 {
		t.Errorf("Opacity = %v, want 1", n.Opacity())
	}
	if !n.Visible() || !n.MouseEnabled() || !n.MouseChildren() {
		t.Error("visible/mouseEnabled/mouseChildren should default to true")
	}
	if n.Focusable() || n.ClipChildren() {
		t.Error("focusable/clipChildren should default to false")
	}
	if n.TabIndex() != -1 {
		t.Errorf("TabIndex = %d, want -1", n.TabIndex())
	}
	if !n.IsInvalidated() {
		t.Error("new nodes start invalidated")
	}
	if n.IsShowing() {
		t.Error("detached node should not be showing")
	}
}

func TestNodeIDsUnique(t *testing.T) {
	a, b := NewContainer("a"), NewContainer("b")
	if a.ID() == b.ID() {
		t.Errorf("IDs collide: %d", a.ID())
	}
}

// --- Tree ---

func TestAddChildSetsParent(t *testing.T) {
	p, c := NewContainer("p"), NewContainer("c")
	if err := p.AddChild(c); err != nil {
		t.Fatal(err)
	}
	if c.Parent() != p || p.NumChildren() != 1 || p.ChildAt(0) != c {
		t.Error("child not attached")
	}
	if !p.IsAncestorOf(c) || c.IsAncestorOf(p) {
		t.Error("IsAncestorOf wrong")
	}
}

func TestAddChildRejectsCycles(t *testing.T) {
	a, b, c := NewContainer("a"), NewContainer("b"), NewContainer("c")
	_ = a.AddChild(b)
	_ = b.AddChild(c)

	for _, tc := range []struct {
		name          string
		parent, child *Node
	}{
		{"self", a, a},
		{"child", b, a},
		{"grandchild", c, a},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.parent.AddChild(tc.child)
			if !errors.Is(err, ErrCycle) || !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrCycle", err)
			}
		})
	}
	if a.Parent() != nil || b.Parent() != a || c.Parent() != b {
		t.Error("tree changed after rejected adds")
	}
	if a.NumChildren() != 1 || b.NumChildren() != 1 || c.NumChildren() != 0 {
		t.Error("child lists changed after rejected adds")
	}
}

func TestAddChildErrors(t *testing.T) {
	p := NewContainer("p")
	if err := p.AddChild(nil); !errors.Is(err, ErrNilNode) {
		t.Errorf("nil child: err = %v", err)
	}
	if err := p.AddChildAt(NewContainer("c"), 2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("bad index: err = %v", err)
	}
	s := NewStage(StageConfig{Width: 10, Height: 10})
	err := p.AddChild(s.Node())
	if !errors.Is(err, ErrRootStageChild) || !errors.Is(err, ErrIllegalState) {
		t.Errorf("root stage child: err = %v", err)
	}
	if p.NumChildren() != 0 {
		t.Error("failed adds left children behind")
	}
}

func TestAddChildAtOrder(t *testing.T) {
	p := NewContainer("p")
	a, b, c := NewContainer("a"), NewContainer("b"), NewContainer("c")
	_ = p.AddChild(a)
	_ = p.AddChild(c)
	if err := p.AddChildAt(b, 1); err != nil {
		t.Fatal(err)
	}
	assertOrder(t, p, "a", "b", "c")

	// Re-adding moves to the end.
	_ = p.AddChild(a)
	assertOrder(t, p, "b", "c", "a")

	if err := p.SetChildIndex(a, 0); err != nil {
		t.Fatal(err)
	}
	assertOrder(t, p, "a", "b", "c")
}

func assertOrder(t *testing.T, p *Node, names ...string) {
	t.Helper()
	var got []string
	for _, c := range p.Children() {
		got = append(got, c.Name())
	}
	if strings.Join(got, ",") != strings.Join(names, ",") {
		t.Errorf("children = %v, want %v", got, names)
	}
}

func TestReparentDetachesFromOldParent(t *testing.T) {
	p1, p2, c := NewContainer("p1"), NewContainer("p2"), NewContainer("c")
	_ = p1.AddChild(c)
	_ = p2.AddChild(c)
	if p1.NumChildren() != 0 || c.Parent() != p2 {
		t.Error("reparent left the child under the old parent")
	}
}

func TestRemoveChild(t *testing.T) {
	p, c := NewContainer("p"), NewContainer("c")
	if err := p.RemoveChild(c); !errors.Is(err, ErrNotChild) {
		t.Errorf("err = %v, want ErrNotChild", err)
	}
	_ = p.AddChild(c)
	c.ValidateDrawable()
	if err := p.RemoveChild(c); err != nil {
		t.Fatal(err)
	}
	if c.Parent() != nil || p.NumChildren() != 0 {
		t.Error("child still attached")
	}
	if !c.IsInvalidated() {
		t.Error("removed child should be invalidated")
	}
	c.RemoveFromParent() // no-op without a parent
}

func TestDrawableFindsDescendant(t *testing.T) {
	root := NewContainer("root")
	a, b := NewContainer("a"), NewContainer("b")
	deep := NewContainer("fish")
	_ = root.AddChild(a)
	_ = root.AddChild(b)
	_ = b.AddChild(deep)
	if got := root.Drawable("fish"); got != deep {
		t.Errorf("Drawable(fish) = %v", got)
	}
	if root.Drawable("shark") != nil {
		t.Error("unknown name should return nil")
	}
}

// --- Stage membership ---

func TestReattachUnderDifferentParentFiresOnePair(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shoal")
	defer teardown()

	s := NewStage(StageConfig{Width: 100, Height: 100})
	left, right := NewContainer("left"), NewContainer("right")
	_ = s.AddChild(left)
	_ = s.AddChild(right)
	n := NewContainer("n")
	_ = left.AddChild(n)

	var log treeLog
	log.watch(n)

	if err := left.RemoveChild(n); err != nil {
		t.Fatal(err)
	}
	if err := right.AddChild(n); err != nil {
		t.Fatal(err)
	}
	if got := log.count("n:removed-from-stage"); got != 1 {
		t.Errorf("removed-from-stage fired %d times, want 1", got)
	}
	if got := log.count("n:added-to-stage"); got != 1 {
		t.Errorf("added-to-stage fired %d times, want 1", got)
	}
}

func TestReaddToSameParentFiresNoParentChange(t *testing.T) {
	p, a, b := NewContainer("p"), NewContainer("a"), NewContainer("b")
	_ = p.AddChild(a)
	_ = p.AddChild(b)

	var log treeLog
	log.watch(a)
	if err := p.AddChild(a); err != nil {
		t.Fatal(err)
	}
	if err := p.AddChildAt(a, 0); err != nil {
		t.Fatal(err)
	}
	assertOrder(t, p, "a", "b")
	if len(log.events) != 0 {
		t.Errorf("events = %v, want none", log.events)
	}
}

func TestDirectReparentSameStageFiresNoStageEvents(t *testing.T) {
	s := NewStage(StageConfig{Width: 100, Height: 100})
	left, right := NewContainer("left"), NewContainer("right")
	_ = s.AddChild(left)
	_ = s.AddChild(right)
	n := NewContainer("n")
	_ = left.AddChild(n)

	var log treeLog
	log.watch(n)
	_ = right.AddChild(n)

	want := []string{"n:parent-changed"}
	if strings.Join(log.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", log.events, want)
	}
}

func TestAttachSubtreeToStageOrder(t *testing.T) {
	s := NewStage(StageConfig{Width: 100, Height: 100})
	p, c := NewContainer("p"), NewContainer("c")
	_ = p.AddChild(c)

	var log treeLog
	log.watch(p, c)
	_ = s.AddChild(p)

	want := []string{
		"p:parent-changed",
		"p:added-to-stage", "p:added-to-root-stage", "p:shown",
		"c:added-to-stage", "c:added-to-root-stage", "c:shown",
	}
	if strings.Join(log.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v\nwant %v", log.events, want)
	}
	if p.Stage() != s || c.RootStage() != s || !c.IsShowing() {
		t.Error("stage membership not propagated")
	}
}

func TestNestedStageMembership(t *testing.T) {
	s := NewStage(StageConfig{Width: 100, Height: 100})
	nested := NewNestedStage("tank", 50, 50)
	n := NewContainer("n")
	_ = nested.AddChild(n)
	if n.Stage() != nested || n.RootStage() != nil {
		t.Error("detached nested stage membership wrong")
	}

	var log treeLog
	log.watch(n)
	_ = s.AddChild(nested.Node())

	if n.Stage() != nested || n.RootStage() != s {
		t.Error("nested stage should stay the stage, root should be s")
	}
	if log.count("n:added-to-stage") != 0 || log.count("n:added-to-root-stage") != 1 {
		t.Errorf("events = %v", log.events)
	}
	if nested.RootStage() != s || nested.FocusManager() != s.FocusManager() {
		t.Error("nested stage should delegate to the root stage")
	}
	if nested.IsRootStage() || !nested.Node().ClipChildren() {
		t.Error("nested stage should be a clipping non-root stage")
	}
}

// --- Visibility ---

func TestSetVisibleShownHidden(t *testing.T) {
	s := NewStage(StageConfig{Width: 100, Height: 100})
	p, c := NewContainer("p"), NewContainer("c")
	_ = p.AddChild(c)
	_ = s.AddChild(p)

	var log treeLog
	log.watch(p, c)
	var vis []any
	p.Listeners().Value.Add(func(e *ValueEvent) { vis = append(vis, e.New) })

	_ = p.SetVisible(false)
	if c.IsShowing() || !c.Visible() {
		t.Error("child of hidden parent should be visible but not showing")
	}
	_ = p.SetVisible(false) // unchanged
	_ = p.SetVisible(true)

	want := []string{"p:hidden", "c:hidden", "p:shown", "c:shown"}
	if strings.Join(log.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", log.events, want)
	}
	if len(vis) != 2 || vis[0] != false || vis[1] != true {
		t.Errorf("visibility-changed values = %v", vis)
	}
}

func TestHiddenChildNotShownOnAttach(t *testing.T) {
	s := NewStage(StageConfig{Width: 100, Height: 100})
	n := NewContainer("n")
	_ = n.SetVisible(false)
	var log treeLog
	log.watch(n)
	_ = s.AddChild(n)
	if log.count("n:added-to-stage") != 1 || log.count("n:shown") != 0 {
		t.Errorf("events = %v", log.events)
	}
}

func TestRootStageCannotBeHidden(t *testing.T) {
	s := NewStage(StageConfig{Width: 100, Height: 100})
	err := s.Node().SetVisible(false)
	if !errors.Is(err, ErrRootStageHidden) || !errors.Is(err, ErrIllegalState) {
		t.Errorf("err = %v", err)
	}
	if !s.Node().IsShowing() {
		t.Error("root stage should keep showing")
	}
}

// --- Geometry events ---

func TestSetPositionIdempotent(t *testing.T) {
	n := NewContainer("n")
	moved := 0
	n.Listeners().Geometry.Add(only(EventMoved, func(*ValueEvent) { moved++ }))

	n.SetPosition(0, 0)
	if moved != 0 {
		t.Errorf("same position fired %d moved events", moved)
	}
	n.SetPosition(3, 4)
	if moved != 1 {
		t.Errorf("new position fired %d moved events, want 1", moved)
	}
	n.SetPosition(3, 4)
	if moved != 1 {
		t.Errorf("repeated position fired again: %d", moved)
	}
}

func TestGeometryEvents(t *testing.T) {
	n := NewContainer("n")
	var got []*ValueEvent
	n.Listeners().Geometry.Add(func(e *ValueEvent) { got = append(got, e) })

	n.SetCenter(1, 2)
	n.SetScale(2, 2)
	n.SetRotation(0.5)
	if err := n.SetUnscaledSize(10, 20); err != nil {
		t.Fatal(err)
	}
	n.SetCenter(1, 2)
	n.SetScale(2, 2)
	n.SetRotation(0.5)
	_ = n.SetUnscaledSize(10, 20)

	want := []EventType{EventRecentered, EventScaled, EventRotated, EventResized}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.Type != want[i] {
			t.Errorf("event %d = %v, want %v", i, e.Type, want[i])
		}
	}
	if got[3].Old != (Vec2{}) || got[3].New != (Vec2{10, 20}) {
		t.Errorf("resized old/new = %v/%v", got[3].Old, got[3].New)
	}
	if got[2].New != 0.5 {
		t.Errorf("rotated new = %v", got[2].New)
	}
}

func TestSetUnscaledSizeNegative(t *testing.T) {
	n := NewContainer("n")
	err := n.SetUnscaledSize(-1, 5)
	if !errors.Is(err, ErrNegativeSize) || !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
	if w, h := n.UnscaledSize(); w != 0 || h != 0 {
		t.Error("size changed on error")
	}
}

func TestScaledSize(t *testing.T) {
	n := NewFill("f", 10, 20, ColorWhite)
	n.SetScale(-2, 0.5)
	w, h := n.ScaledSize()
	assertNear(t, "w", w, 20)
	assertNear(t, "h", h, 10)
}

func TestSetOpacityClampsAndFires(t *testing.T) {
	n := NewContainer("n")
	var vals []any
	n.Listeners().Value.Add(only(EventOpacityChanged, func(e *ValueEvent) { vals = append(vals, e.New) }))
	n.SetOpacity(1.5)
	n.SetOpacity(-3)
	n.SetOpacity(0)
	if n.Opacity() != 0 {
		t.Errorf("Opacity = %v", n.Opacity())
	}
	if len(vals) != 1 || vals[0] != 0.0 {
		t.Errorf("opacity events = %v, want [0]", vals)
	}
}

// --- Validation ---

func TestValidateRunsOncePerInvalidation(t *testing.T) {
	n := NewContainer("auto")
	runs := 0
	n.OnValidate = func(n *Node) {
		runs++
		// Mutations and nested validation inside the hook must not re-enter.
		_ = n.SetUnscaledSize(float64(10*runs), 5)
		n.Invalidate()
		n.ValidateDrawable()
	}
	n.ValidateDrawable()
	n.ValidateDrawable()
	if runs != 1 {
		t.Errorf("hook ran %d times, want 1", runs)
	}
	if n.IsInvalidated() {
		t.Error("node still invalidated after validation")
	}
	if w, _ := n.UnscaledSize(); w != 10 {
		t.Errorf("width = %v, want 10", w)
	}

	n.Invalidate()
	n.ValidateDrawable()
	if runs != 2 {
		t.Errorf("hook ran %d times after re-invalidation, want 2", runs)
	}
}

func TestSetUnscaledSizeInvalidates(t *testing.T) {
	n := NewContainer("n")
	n.ValidateDrawable()
	_ = n.SetUnscaledSize(4, 4)
	if !n.IsInvalidated() {
		t.Error("resize outside validation should invalidate")
	}
}

func TestSetUnscaledSizeSameSizeKeepsValid(t *testing.T) {
	n := NewContainer("n")
	_ = n.SetUnscaledSize(4, 4)
	n.ValidateDrawable()
	_ = n.SetUnscaledSize(4, 4)
	if n.IsInvalidated() {
		t.Error("resize to the current size invalidated the node")
	}

	s := NewStage(StageConfig{Width: 64, Height: 48})
	s.Node().ValidateDrawable()
	s.SetSurfaceSize(64, 48)
	if s.Node().IsInvalidated() {
		t.Error("unchanged surface size invalidated the root stage")
	}
}

func TestValidateTreeSkipsHidden(t *testing.T) {
	root, shown, hidden := NewContainer("root"), NewContainer("shown"), NewContainer("hidden")
	_ = root.AddChild(shown)
	_ = root.AddChild(hidden)
	_ = hidden.SetVisible(false)
	validateTree(root)
	if shown.IsInvalidated() {
		t.Error("visible child not validated")
	}
	if !hidden.IsInvalidated() {
		t.Error("hidden child should stay invalidated")
	}
}

// --- Debug ---

func TestDump(t *testing.T) {
	root := NewContainer("root")
	a := NewFill("reef", 10, 10, ColorWhite)
	_ = root.AddChild(a)
	_ = a.AddChild(NewContainer("clownfish"))
	out := root.Dump()
	for _, want := range []string{`"root"`, `"reef"`, `"clownfish"`, "fill"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %s:\n%s", want, out)
		}
	}
}
