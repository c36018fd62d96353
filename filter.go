package shoal

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// Filter is a post-processing step applied to a node's offscreen rendering.
// The scene graph treats filters as opaque image transforms.
type Filter interface {
	// Apply renders src into dst with the filter effect.
	Apply(src, dst *ebiten.Image)
	// Padding returns the extra pixels needed around the source to fit the
	// effect (e.g. outline thickness). Zero means no padding.
	Padding() int
}

// --- ColorMatrixFilter ---

const colorMatrixShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a > 0 {
		c.rgb /= c.a
	}
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19]
	a = clamp(a, 0, 1)
	return vec4(clamp(r, 0, 1)*a, clamp(g, 0, 1)*a, clamp(b, 0, 1)*a, a)
}
`

var (
	colorMatrixShader     *ebiten.Shader
	colorMatrixShaderOnce sync.Once
)

func ensureColorMatrixShader() *ebiten.Shader {
	colorMatrixShaderOnce.Do(func() {
		s, err := ebiten.NewShader([]byte(colorMatrixShaderSrc))
		if err != nil {
			panic("shoal: compile color matrix shader: " + err.Error())
		}
		colorMatrixShader = s
	})
	return colorMatrixShader
}

// ColorMatrixFilter applies a 4x5 color matrix in row-major order:
// [Rr, Rg, Rb, Ra, Roffset, Gr, ...]. Aquarium fish use it to brighten on
// hover and to gray out when disabled.
type ColorMatrixFilter struct {
	mu     sync.Mutex
	matrix [20]float64
	f32    [20]float32
	op     ebiten.DrawRectShaderOptions
}

// NewColorMatrixFilter creates a filter initialized to the identity matrix.
func NewColorMatrixFilter() *ColorMatrixFilter {
	f := &ColorMatrixFilter{}
	f.SetMatrix(identityColorMatrix)
	return f
}

var identityColorMatrix = [20]float64{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// Matrix returns the current matrix.
func (f *ColorMatrixFilter) Matrix() [20]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matrix
}

// SetMatrix replaces the matrix.
func (f *ColorMatrixFilter) SetMatrix(m [20]float64) {
	f.mu.Lock()
	f.matrix = m
	f.mu.Unlock()
}

// SetBrightness offsets the color channels by b in [-1, 1].
func (f *ColorMatrixFilter) SetBrightness(b float64) {
	f.SetMatrix([20]float64{
		1, 0, 0, 0, b,
		0, 1, 0, 0, b,
		0, 0, 1, 0, b,
		0, 0, 0, 1, 0,
	})
}

// SetSaturation scales saturation. 1 is unchanged, 0 is grayscale.
func (f *ColorMatrixFilter) SetSaturation(s float64) {
	sr := (1 - s) * 0.299
	sg := (1 - s) * 0.587
	sb := (1 - s) * 0.114
	f.SetMatrix([20]float64{
		sr + s, sg, sb, 0, 0,
		sr, sg + s, sb, 0, 0,
		sr, sg, sb + s, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Apply implements Filter.
func (f *ColorMatrixFilter) Apply(src, dst *ebiten.Image) {
	shader := ensureColorMatrixShader()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.matrix {
		f.f32[i] = float32(v)
	}
	b := src.Bounds()
	f.op.Images[0] = src
	f.op.Uniforms = map[string]any{"Matrix": f.f32[:]}
	dst.DrawRectShader(b.Dx(), b.Dy(), shader, &f.op)
}

// Padding implements Filter.
func (f *ColorMatrixFilter) Padding() int { return 0 }

// --- OutlineFilter ---

// OutlineFilter draws the source tinted with Color at eight offsets, then
// the source on top. The aquarium uses it as a focus ring.
type OutlineFilter struct {
	Thickness int
	Color     Color
}

// NewOutlineFilter creates an outline filter.
func NewOutlineFilter(thickness int, c Color) *OutlineFilter {
	return &OutlineFilter{Thickness: thickness, Color: c}
}

// Apply implements Filter.
func (f *OutlineFilter) Apply(src, dst *ebiten.Image) {
	t := float64(f.Thickness)
	offsets := [8][2]float64{
		{-t, 0}, {t, 0}, {0, -t}, {0, t},
		{-t, -t}, {t, -t}, {-t, t}, {t, t},
	}
	var op ebiten.DrawImageOptions
	for _, off := range offsets {
		op.GeoM.Reset()
		op.ColorScale.Reset()
		op.GeoM.Translate(off[0], off[1])
		op.ColorScale.ScaleWithColor(f.Color.RGBA())
		dst.DrawImage(src, &op)
	}
	op.GeoM.Reset()
	op.ColorScale.Reset()
	dst.DrawImage(src, &op)
}

// Padding implements Filter.
func (f *OutlineFilter) Padding() int { return f.Thickness }

// --- chain ---

// filtersPadding sums the padding of a chain.
func filtersPadding(filters []Filter) int {
	pad := 0
	for _, f := range filters {
		pad += f.Padding()
	}
	return pad
}

// applyFilters runs the chain over src, ping-ponging between src and a
// pooled scratch image. The returned image is either src or the scratch;
// the other one is handed back for release.
func applyFilters(filters []Filter, src *ebiten.Image, pool *renderTexturePool) (result, spare *ebiten.Image) {
	if len(filters) == 0 {
		return src, nil
	}
	b := src.Bounds()
	current := src
	scratch := pool.Acquire(b.Dx(), b.Dy())
	for i, f := range filters {
		if i > 0 {
			scratch.Clear()
		}
		f.Apply(current, scratch)
		current, scratch = scratch, current
	}
	return current, scratch
}
