package shoal

import "math"

// --- Geometry ---

// Position returns the point in the parent's space the node's center maps to.
func (n *Node) Position() (x, y float64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.x, n.y
}

// SetPosition moves the node. EventMoved fires only if the position changed.
func (n *Node) SetPosition(x, y float64) {
	n.mu.Lock()
	old := Vec2{n.x, n.y}
	n.x, n.y = x, y
	n.transformValid = false
	n.mu.Unlock()
	n.geometryChanged(EventMoved, "position", old, Vec2{x, y})
}

// Center returns the pivot point in the node's own space.
func (n *Node) Center() (cx, cy float64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.centerX, n.centerY
}

// SetCenter sets the pivot that rotation and scale act around. The pivot
// maps to the node's position in the parent's space.
func (n *Node) SetCenter(cx, cy float64) {
	n.mu.Lock()
	old := Vec2{n.centerX, n.centerY}
	n.centerX, n.centerY = cx, cy
	n.transformValid = false
	n.mu.Unlock()
	n.geometryChanged(EventRecentered, "center", old, Vec2{cx, cy})
}

// Scale returns the node's scale factors.
func (n *Node) Scale() (sx, sy float64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.scaleX, n.scaleY
}

// SetScale sets the scale factors. Zero scale is legal; such nodes cannot
// be hit.
func (n *Node) SetScale(sx, sy float64) {
	n.mu.Lock()
	old := Vec2{n.scaleX, n.scaleY}
	n.scaleX, n.scaleY = sx, sy
	n.transformValid = false
	n.mu.Unlock()
	n.geometryChanged(EventScaled, "scale", old, Vec2{sx, sy})
}

// Rotation returns the rotation in radians, clockwise.
func (n *Node) Rotation() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rotation
}

// SetRotation sets the rotation in radians, clockwise.
func (n *Node) SetRotation(r float64) {
	n.mu.Lock()
	old := n.rotation
	n.rotation = r
	n.transformValid = false
	n.mu.Unlock()
	n.geometryChanged(EventRotated, "rotation", old, r)
}

// UnscaledSize returns the node's size before scaling.
func (n *Node) UnscaledSize() (w, h float64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.width, n.height
}

// SetUnscaledSize sets the node's size before scaling and invalidates it
// when the size changed.
func (n *Node) SetUnscaledSize(w, h float64) error {
	if w < 0 || h < 0 {
		return ErrNegativeSize
	}
	n.mu.Lock()
	old := Vec2{n.width, n.height}
	n.width, n.height = w, h
	if !n.validating && old != (Vec2{w, h}) {
		n.invalidated = true
	}
	n.mu.Unlock()
	n.geometryChanged(EventResized, "size", old, Vec2{w, h})
	return nil
}

// ScaledSize returns the size multiplied by the absolute scale factors.
func (n *Node) ScaledSize() (w, h float64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.width * math.Abs(n.scaleX), n.height * math.Abs(n.scaleY)
}

func (n *Node) geometryChanged(t EventType, name string, old, new any) {
	if old == new {
		return
	}
	n.requestRepaint()
	n.fireGeometry(t, name, old, new)
}

// --- Transforms ---

// Transform returns the local transform, rebuilding the cache if a
// geometry setter dropped it.
func (n *Node) Transform() Affine {
	n.mu.RLock()
	if n.transformValid {
		m := n.transform
		n.mu.RUnlock()
		return m
	}
	n.mu.RUnlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.transformValid {
		n.transform = computeLocalTransform(n.x, n.y, n.centerX, n.centerY, n.scaleX, n.scaleY, n.rotation)
		n.transformValid = true
	}
	return n.transform
}

// ConcatenatedTransform composes the transforms from the topmost ancestor
// down to this node, mapping local coordinates to the root's space.
func (n *Node) ConcatenatedTransform() Affine {
	m := n.Transform()
	for p := n.Parent(); p != nil; p = p.Parent() {
		m = p.Transform().Multiply(m)
	}
	return m
}

// LocalToGlobal maps a point in the node's space to the root's space.
func (n *Node) LocalToGlobal(lx, ly float64) (gx, gy float64) {
	return n.ConcatenatedTransform().Apply(lx, ly)
}

// GlobalToLocal maps a point in the root's space to the node's space. ok is
// false when the transform is not invertible.
func (n *Node) GlobalToLocal(gx, gy float64) (lx, ly float64, ok bool) {
	inv, ok := n.ConcatenatedTransform().Invert()
	if !ok {
		return 0, 0, false
	}
	lx, ly = inv.Apply(gx, gy)
	return lx, ly, true
}

// Bounds returns the node's axis-aligned bounding box in its parent's space.
func (n *Node) Bounds() Rect {
	w, h := n.UnscaledSize()
	return n.Transform().boundsAABB(w, h)
}

// PointIntersects reports whether the local point (x, y) lies on the node.
// HitShape is used when set; otherwise the inclusive unscaled bounds.
func (n *Node) PointIntersects(x, y float64) bool {
	if n.HitShape != nil {
		return n.HitShape.Contains(x, y)
	}
	w, h := n.UnscaledSize()
	if w <= 0 || h <= 0 {
		return false
	}
	return Rect{Width: w, Height: h}.Contains(x, y)
}
