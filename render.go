package shoal

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// paintFrame holds the scratch state of one repaint.
type paintFrame struct {
	pool     *renderTexturePool
	deferred []*ebiten.Image // pooled buffers released once the frame is done

	nodes      int
	offscreens int
}

// Draw validates and paints the stage's tree onto screen. Nodes are painted
// parents first and children in list order, so later children draw on top.
func (s *Stage) Draw(screen *ebiten.Image) {
	start := time.Now()
	validateTree(s.node)

	f := &paintFrame{pool: &s.pool}
	f.paintNode(screen, s.node, Identity)
	for _, img := range f.deferred {
		s.pool.Release(img)
	}

	observeRepaint(start)
	if s.cfg.Debug {
		s.debugLog(f, time.Since(start))
	}
}

func (f *paintFrame) paintNode(dst *ebiten.Image, n *Node, parent Affine) {
	n.mu.RLock()
	visible, opacity := n.visible, n.opacity
	filters := n.filters
	n.mu.RUnlock()
	if !visible || opacity <= 0 {
		return
	}
	world := parent.Multiply(n.Transform())
	if opacity < 1 || len(filters) > 0 {
		f.paintOffscreen(dst, n, world, opacity, filters)
		return
	}
	f.paintContent(dst, n, world)
}

// paintContent paints n itself, then its children. With clipChildren set
// both are clipped to n's box.
func (f *paintFrame) paintContent(dst *ebiten.Image, n *Node, world Affine) {
	f.nodes++
	n.mu.RLock()
	clip := n.clipChildren
	w, h := n.width, n.height
	children := append([]*Node(nil), n.children...)
	n.mu.RUnlock()

	target := dst
	if clip {
		r := pixelRect(world.boundsAABB(w, h)).Intersect(dst.Bounds())
		if r.Empty() {
			return
		}
		target = dst.SubImage(r).(*ebiten.Image)
	}
	if n.Paint != nil {
		n.Paint(n, target, world.GeoM(), ebiten.ColorScale{})
	}
	for _, c := range children {
		f.paintNode(target, c, world)
	}
}

// paintOffscreen paints n's subtree into a pooled buffer, runs the filter
// chain over it and composites the result at the node's opacity.
func (f *paintFrame) paintOffscreen(dst *ebiten.Image, n *Node, world Affine, opacity float64, filters []Filter) {
	b, ok := subtreeBounds(n, world)
	if !ok {
		return
	}
	r := pixelRect(b).Inset(-filtersPadding(filters))
	if r.Empty() {
		return
	}
	f.offscreens++

	buf := f.pool.Acquire(r.Dx(), r.Dy())
	f.deferred = append(f.deferred, buf)
	shift := Affine{1, 0, 0, 1, -float64(r.Min.X), -float64(r.Min.Y)}
	f.paintContent(buf, n, shift.Multiply(world))

	result, spare := applyFilters(filters, buf, f.pool)
	if spare != nil && spare != buf {
		f.deferred = append(f.deferred, spare)
	}
	if result != buf {
		f.deferred = append(f.deferred, result)
	}

	var op ebiten.DrawImageOptions
	op.GeoM.Translate(float64(r.Min.X), float64(r.Min.Y))
	op.ColorScale.ScaleAlpha(float32(opacity))
	dst.DrawImage(result, &op)
}
