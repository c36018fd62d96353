package shoal

import "math"

// HitRect is an axis-aligned rectangular hit area in local coordinates.
type HitRect Rect

// Contains reports whether (x, y) lies inside the rectangle, edges included.
func (r HitRect) Contains(x, y float64) bool {
	return Rect(r).Contains(x, y)
}

// HitCircle is a circular hit area in local coordinates.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	return math.Hypot(x-c.CenterX, y-c.CenterY) <= c.Radius
}

// HitPolygon is a closed polygon hit area in local coordinates. Concave
// outlines are fine; self-intersecting ones use the even-odd rule.
type HitPolygon []Vec2

// Contains casts a ray toward +X and counts edge crossings.
func (p HitPolygon) Contains(x, y float64) bool {
	if len(p) < 3 {
		return false
	}
	inside := false
	j := len(p) - 1
	for i := range p {
		a, b := p[i], p[j]
		if (a.Y > y) != (b.Y > y) {
			cx := a.X + (y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if x < cx {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// HitFunc adapts a plain function to HitShape.
type HitFunc func(x, y float64) bool

// Contains calls f.
func (f HitFunc) Contains(x, y float64) bool { return f(x, y) }

// --- Picking ---

// pick returns the topmost node under the point (x, y), given in root's
// parent space, or nil.
func pick(root *Node, x, y float64) *Node {
	hitTests.Inc()
	inv, ok := root.Transform().Invert()
	if !ok {
		return nil
	}
	lx, ly := inv.Apply(x, y)
	return pickLocal(root, lx, ly)
}

// pickLocal hit tests n and its subtree with (lx, ly) in n's own space.
// Children are tested front to back, i.e. in reverse list order.
func pickLocal(n *Node, lx, ly float64) *Node {
	if !n.Visible() {
		return nil
	}
	n.ValidateDrawable()

	n.mu.RLock()
	mouseEnabled, clip := n.mouseEnabled, n.clipChildren
	w, h := n.width, n.height
	var children []*Node
	if n.mouseChildren {
		children = append(children, n.children...)
	}
	n.mu.RUnlock()

	if len(children) > 0 && (!clip || (Rect{Width: w, Height: h}).Contains(lx, ly)) {
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			inv, ok := c.Transform().Invert()
			if !ok {
				tracer().Debugf("pick: %q has a degenerate transform, skipped", c.Name())
				continue
			}
			cx, cy := inv.Apply(lx, ly)
			if hit := pickLocal(c, cx, cy); hit != nil {
				return hit
			}
		}
	}
	if mouseEnabled && n.PointIntersects(lx, ly) {
		return n
	}
	return nil
}
