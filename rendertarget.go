package shoal

import (
	"image"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// renderTexturePool keeps offscreen images keyed by power-of-two size so
// nodes painted through a buffer do not allocate a texture every frame.
type renderTexturePool struct {
	mu      sync.Mutex
	buckets map[uint64][]*ebiten.Image
	created int
}

func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a cleared image of at least w x h pixels.
func (p *renderTexturePool) Acquire(w, h int) *ebiten.Image {
	pw, ph := nextPowerOfTwo(w), nextPowerOfTwo(h)
	key := poolKey(pw, ph)

	p.mu.Lock()
	if stack := p.buckets[key]; len(stack) > 0 {
		img := stack[len(stack)-1]
		p.buckets[key] = stack[:len(stack)-1]
		p.mu.Unlock()
		img.Clear()
		return img
	}
	p.created++
	p.mu.Unlock()

	return ebiten.NewImageWithOptions(image.Rect(0, 0, pw, ph), &ebiten.NewImageOptions{Unmanaged: true})
}

// Release returns img to the pool. It is cleared on the next Acquire.
func (p *renderTexturePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	key := poolKey(b.Dx(), b.Dy())
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buckets == nil {
		p.buckets = make(map[uint64][]*ebiten.Image)
	}
	p.buckets[key] = append(p.buckets[key], img)
}

// stats returns how many images were ever created and how many are idle.
func (p *renderTexturePool) stats() (created, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, stack := range p.buckets {
		idle += len(stack)
	}
	return p.created, idle
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}

// subtreeBounds returns the screen-space box covering n and its visible
// descendants, given n's world transform. Clipping nodes bound their
// children to their own box.
func subtreeBounds(n *Node, world Affine) (Rect, bool) {
	n.mu.RLock()
	visible, clip := n.visible, n.clipChildren
	w, h := n.width, n.height
	children := append([]*Node(nil), n.children...)
	n.mu.RUnlock()
	if !visible {
		return Rect{}, false
	}

	var out Rect
	found := false
	if w > 0 && h > 0 {
		out, found = world.boundsAABB(w, h), true
	}
	if clip {
		return out, found
	}
	for _, c := range children {
		cb, ok := subtreeBounds(c, world.Multiply(c.Transform()))
		if !ok {
			continue
		}
		if !found {
			out, found = cb, true
			continue
		}
		out = unionRect(out, cb)
	}
	return out, found
}

func unionRect(a, b Rect) Rect {
	x0 := math.Min(a.X, b.X)
	y0 := math.Min(a.Y, b.Y)
	x1 := math.Max(a.X+a.Width, b.X+b.Width)
	y1 := math.Max(a.Y+a.Height, b.Y+b.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// pixelRect rounds r outwards to whole pixels.
func pixelRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	)
}
