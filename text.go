package shoal

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// Font is a TrueType face at a fixed size, shared by any number of labels.
type Font struct {
	face *text.GoTextFace
	lh   float64
}

// LoadFont parses TTF or OTF data and returns a face of the given size.
func LoadFont(ttfData []byte, size float64) (*Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shoal: font size %g: %w", size, ErrInvalidArgument)
	}
	src, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("shoal: parse font: %w", err)
	}
	face := &text.GoTextFace{Source: src, Size: size}
	m := face.Metrics()
	return &Font{face: face, lh: m.HAscent + m.HDescent + m.HLineGap}, nil
}

// LineHeight returns the distance between baselines.
func (f *Font) LineHeight() float64 { return f.lh }

// Measure returns the size of s laid out with the font's line height.
func (f *Font) Measure(s string) (w, h float64) {
	return text.Measure(s, f.face, f.lh)
}

type labelState struct {
	mu   sync.RWMutex
	text string
	font *Font
}

// NewLabel creates a node that draws s in font and color c. The label
// sizes itself to the measured text on validation. Labels ignore the
// pointer unless SetMouseEnabled(true) is called.
func NewLabel(name, s string, font *Font, c Color) *Node {
	n := &Node{name: name, kind: NodeTypeLabel}
	nodeDefaults(n)
	n.color = c
	n.mouseEnabled = false
	n.label = &labelState{text: s, font: font}
	n.OnValidate = func(n *Node) {
		s, f := n.label.get()
		if f == nil {
			_ = n.SetUnscaledSize(0, 0)
			return
		}
		w, h := f.Measure(s)
		_ = n.SetUnscaledSize(w, h)
	}
	n.Paint = paintLabel
	return n
}

func (l *labelState) get() (string, *Font) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.text, l.font
}

func paintLabel(n *Node, dst *ebiten.Image, geo ebiten.GeoM, cs ebiten.ColorScale) {
	s, f := n.label.get()
	c := n.Color()
	if f == nil || s == "" || c.A <= 0 {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM = geo
	op.ColorScale = cs
	op.ColorScale.ScaleWithColor(c.RGBA())
	op.LineSpacing = f.lh
	text.Draw(dst, s, f.face, op)
}

// Text returns a label's text, or "" for other nodes.
func (n *Node) Text() string {
	if n.label == nil {
		return ""
	}
	s, _ := n.label.get()
	return s
}

// SetText replaces a label's text, invalidates it and fires a "text"
// ValueChanged. It does nothing on other nodes or when s is unchanged.
func (n *Node) SetText(s string) {
	if n.label == nil {
		return
	}
	n.label.mu.Lock()
	old := n.label.text
	n.label.text = s
	n.label.mu.Unlock()
	if old == s {
		return
	}
	n.Invalidate()
	n.FireValueChanged("text", old, s)
}

// SetFont replaces a label's font and invalidates it.
func (n *Node) SetFont(f *Font) {
	if n.label == nil {
		return
	}
	n.label.mu.Lock()
	n.label.font = f
	n.label.mu.Unlock()
	n.Invalidate()
}
