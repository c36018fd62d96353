package shoal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/time/rate"
)

// Default stage settings.
const (
	DefaultClickTimeout   = 350 * time.Millisecond
	DefaultMaxRepaintRate = 60
)

// StageConfig configures a root Stage. Zero fields take the defaults.
type StageConfig struct {
	// Width and Height size the host surface the stage is shown on.
	Width, Height int
	// ClickTimeout is the longest gap between presses that still counts
	// towards a multi-click.
	ClickTimeout time.Duration
	// MaxRepaintRate caps repaints per second. Negative means unlimited.
	MaxRepaintRate float64
	// Debug logs per-repaint stats through the tracer.
	Debug bool
}

func (c StageConfig) withDefaults() StageConfig {
	if c.ClickTimeout <= 0 {
		c.ClickTimeout = DefaultClickTimeout
	}
	if c.MaxRepaintRate == 0 {
		c.MaxRepaintRate = DefaultMaxRepaintRate
	}
	return c
}

// Stage is a Node that either roots a display tree or nests inside one as a
// clipping container. A root stage owns the FocusManager, the input
// pipeline and the binding to the host surface; a nested stage delegates
// those to the root stage it is attached under.
type Stage struct {
	node *Node
	root bool

	// Root stages only.
	cfg     StageConfig
	focus   *FocusManager
	input   *InputPipeline
	repaint atomic.Bool
	limiter *rate.Limiter
	pool    renderTexturePool

	tweenMu sync.Mutex
	tweens  []*TweenGroup
}

// NewStage creates a root stage sized to the host surface.
func NewStage(cfg StageConfig) *Stage {
	cfg = cfg.withDefaults()
	s := &Stage{root: true, cfg: cfg}
	n := &Node{name: "stage", kind: NodeTypeStage}
	nodeDefaults(n)
	n.self = s
	n.root = s
	n.showing = true
	n.width, n.height = float64(max(cfg.Width, 0)), float64(max(cfg.Height, 0))
	s.node = n

	limit := rate.Limit(cfg.MaxRepaintRate)
	if cfg.MaxRepaintRate < 0 {
		limit = rate.Inf
	}
	s.limiter = rate.NewLimiter(limit, 1)
	s.focus = newFocusManager(s)
	s.input = newInputPipeline(s)
	n.Listeners().Key.AddDefault(s.handleTabKey)
	s.repaint.Store(true)
	return s
}

// NewNestedStage creates a stage meant to be attached under a root stage.
// It clips its children to its bounds.
func NewNestedStage(name string, w, h float64) *Stage {
	s := &Stage{}
	n := &Node{name: name, kind: NodeTypeStage}
	nodeDefaults(n)
	n.self = s
	n.clipChildren = true
	n.width, n.height = max(w, 0), max(h, 0)
	s.node = n
	return s
}

// Node returns the stage's node, which is what gets attached and what
// children are added to.
func (s *Stage) Node() *Node { return s.node }

// IsRootStage reports whether s roots a display tree.
func (s *Stage) IsRootStage() bool { return s.root }

// AddChild attaches child to the stage's node.
func (s *Stage) AddChild(child *Node) error { return s.node.AddChild(child) }

// RemoveChild detaches child from the stage's node.
func (s *Stage) RemoveChild(child *Node) error { return s.node.RemoveChild(child) }

// RootStage returns s for a root stage, else the root stage s is attached
// under, or nil.
func (s *Stage) RootStage() *Stage {
	if s.root {
		return s
	}
	return s.node.RootStage()
}

// FocusManager returns the root stage's focus manager, or nil when a nested
// stage is detached.
func (s *Stage) FocusManager() *FocusManager {
	if r := s.RootStage(); r != nil {
		return r.focus
	}
	return nil
}

// Input returns the root stage's input pipeline, or nil when a nested stage
// is detached.
func (s *Stage) Input() *InputPipeline {
	if r := s.RootStage(); r != nil {
		return r.input
	}
	return nil
}

// SurfaceSize returns the size of the host surface of the root stage.
func (s *Stage) SurfaceSize() (w, h int) {
	r := s.RootStage()
	if r == nil {
		return 0, 0
	}
	sw, sh := r.node.UnscaledSize()
	return int(sw), int(sh)
}

// SetSurfaceSize resizes a root stage to match its host surface.
func (s *Stage) SetSurfaceSize(w, h int) {
	if !s.root {
		return
	}
	_ = s.node.SetUnscaledSize(float64(max(w, 0)), float64(max(h, 0)))
}

// RequestRepaint marks the root stage as needing a repaint.
func (s *Stage) RequestRepaint() {
	if r := s.RootStage(); r != nil {
		r.repaint.Store(true)
	}
}

// NeedsRepaint reports whether a repaint was requested since the last one.
func (s *Stage) NeedsRepaint() bool {
	r := s.RootStage()
	return r != nil && r.repaint.Load()
}

// TakeRepaint clears and returns the repaint request if the repaint rate
// limit allows one now. A request refused by the limiter stays pending.
func (s *Stage) TakeRepaint() bool {
	r := s.RootStage()
	if r == nil || !r.repaint.Load() {
		return false
	}
	if !r.limiter.Allow() {
		return false
	}
	r.repaint.Store(false)
	return true
}

// AddTween registers g to be advanced by Update until it is done.
func (s *Stage) AddTween(g *TweenGroup) {
	if g == nil {
		return
	}
	s.tweenMu.Lock()
	s.tweens = append(s.tweens, g)
	s.tweenMu.Unlock()
}

// Update advances the registered tweens by dt seconds and drops finished
// ones. Tween setters fire their usual geometry events.
func (s *Stage) Update(dt float32) {
	s.tweenMu.Lock()
	active := append([]*TweenGroup(nil), s.tweens...)
	s.tweenMu.Unlock()

	for _, g := range active {
		g.Update(dt)
	}

	s.tweenMu.Lock()
	kept := s.tweens[:0]
	for _, g := range s.tweens {
		if !g.Done() {
			kept = append(kept, g)
		}
	}
	clear(s.tweens[len(kept):])
	s.tweens = kept
	s.tweenMu.Unlock()
}

// handleTabKey is the root's default key listener: an unconsumed Tab moves
// focus forwards, Shift+Tab backwards.
func (s *Stage) handleTabKey(e *KeyEvent) {
	if e.Type != EventKeyPressed || e.Code != ebiten.KeyTab {
		return
	}
	moved, err := s.focus.FocusNextTabbable(s.node, !e.Modifiers.Has(ModShift))
	if err != nil {
		tracer().Debugf("stage: tab traversal: %v", err)
		return
	}
	if moved {
		e.Consume()
	}
}
