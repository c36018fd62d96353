package shoal

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// NewSprite creates a node that shows anim's current frame. The node sizes
// itself to the largest frame of the set, repaints whenever the animation
// enters a frame, and is only hit where the current frame has a
// non-transparent pixel.
func NewSprite(name string, anim *Animation) *Node {
	n := &Node{name: name, kind: NodeTypeSprite}
	nodeDefaults(n)
	n.anim = anim
	n.OnValidate = func(n *Node) {
		fs := anim.FrameSet()
		_ = n.SetUnscaledSize(float64(fs.MaxWidth()), float64(fs.MaxHeight()))
	}
	n.Paint = func(n *Node, dst *ebiten.Image, geo ebiten.GeoM, cs ebiten.ColorScale) {
		img := anim.frames.ebitenImage(anim.CurrentIndex())
		if img == nil {
			return
		}
		var op ebiten.DrawImageOptions
		op.GeoM = geo
		op.ColorScale = cs
		op.ColorScale.ScaleWithColor(n.Color().RGBA())
		dst.DrawImage(img, &op)
	}
	n.HitShape = HitFunc(func(x, y float64) bool {
		f, err := anim.CurrentFrame()
		if err != nil {
			return false
		}
		return f.Opaque(int(math.Floor(x)), int(math.Floor(y)))
	})
	anim.OnEnteredFrame(func(*FrameEvent) { n.Invalidate() })
	return n
}

// Animation returns the Animation behind a sprite node, or nil.
func (n *Node) Animation() *Animation { return n.anim }
