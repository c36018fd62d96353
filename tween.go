package shoal

import (
	"sync"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to four values of a Node together and writes them
// back through the node's setters, so geometry listeners see every step.
// Register it with Stage.AddTween or call Update yourself.
type TweenGroup struct {
	mu     sync.Mutex
	tweens [4]*gween.Tween
	count  int
	apply  func(v [4]float64)
	done   bool
}

func newTweenGroup(from, to []float64, duration float32, fn ease.TweenFunc, apply func(v [4]float64)) *TweenGroup {
	g := &TweenGroup{count: len(from), apply: apply}
	for i := range from {
		g.tweens[i] = gween.New(float32(from[i]), float32(to[i]), duration, fn)
	}
	return g
}

// Update advances the tweens by dt seconds and applies the values.
func (g *TweenGroup) Update(dt float32) {
	g.mu.Lock()
	if g.done {
		g.mu.Unlock()
		return
	}
	var vals [4]float64
	allDone := true
	for i := 0; i < g.count; i++ {
		v, finished := g.tweens[i].Update(dt)
		vals[i] = float64(v)
		if !finished {
			allDone = false
		}
	}
	g.done = allDone
	apply := g.apply
	g.mu.Unlock()

	apply(vals)
}

// Done reports whether every tween reached its end or the group was stopped.
func (g *TweenGroup) Done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// Stop ends the group where it is.
func (g *TweenGroup) Stop() {
	g.mu.Lock()
	g.done = true
	g.mu.Unlock()
}

// TweenPosition moves node to (toX, toY) over duration seconds.
func TweenPosition(node *Node, toX, toY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	x, y := node.Position()
	return newTweenGroup([]float64{x, y}, []float64{toX, toY}, duration, fn, func(v [4]float64) {
		node.SetPosition(v[0], v[1])
	})
}

// TweenScale scales node to (toSX, toSY) over duration seconds.
func TweenScale(node *Node, toSX, toSY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	sx, sy := node.Scale()
	return newTweenGroup([]float64{sx, sy}, []float64{toSX, toSY}, duration, fn, func(v [4]float64) {
		node.SetScale(v[0], v[1])
	})
}

// TweenRotation rotates node to the given angle in radians.
func TweenRotation(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup([]float64{node.Rotation()}, []float64{to}, duration, fn, func(v [4]float64) {
		node.SetRotation(v[0])
	})
}

// TweenOpacity fades node to the given opacity.
func TweenOpacity(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup([]float64{node.Opacity()}, []float64{to}, duration, fn, func(v [4]float64) {
		node.SetOpacity(v[0])
	})
}

// TweenColor blends node's color towards to.
func TweenColor(node *Node, to Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	c := node.Color()
	return newTweenGroup([]float64{c.R, c.G, c.B, c.A}, []float64{to.R, to.G, to.B, to.A}, duration, fn, func(v [4]float64) {
		node.SetColor(Color{R: v[0], G: v[1], B: v[2], A: v[3]})
	})
}
