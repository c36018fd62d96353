package shoal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Host runs a root Stage as an ebiten.Game. It polls Ebitengine input and
// feeds the stage's input pipeline, tracks window focus as system focus,
// advances tweens, and repaints the tree into a cached canvas only when a
// repaint was requested and the stage's rate limit allows it.
type Host struct {
	stage  *Stage
	canvas *ebiten.Image

	// Script, when set, injects scripted input one frame at a time.
	Script *InputScript
	// OnUpdate runs at the end of every Update with the frame time in
	// seconds. A non-nil error ends the game.
	OnUpdate func(dt float32) error
	// ScreenshotDir receives the PNGs queued by Screenshot. Defaults to
	// "screenshots".
	ScreenshotDir string

	shots        []string
	focused      bool
	lastX, lastY int
	keys         []ebiten.Key
	chars        []rune
}

// NewHost wraps a root stage. It panics if stage is not a root stage.
func NewHost(stage *Stage) *Host {
	if stage == nil || !stage.IsRootStage() {
		panic("shoal: NewHost needs a root stage")
	}
	return &Host{stage: stage, lastX: -1, lastY: -1}
}

// Stage returns the hosted stage.
func (h *Host) Stage() *Stage { return h.stage }

var hostButtons = [...]struct {
	eb ebiten.MouseButton
	mb MouseButton
}{
	{ebiten.MouseButtonLeft, MouseButtonLeft},
	{ebiten.MouseButtonRight, MouseButtonRight},
	{ebiten.MouseButtonMiddle, MouseButtonMiddle},
}

// Update implements ebiten.Game.
func (h *Host) Update() error {
	dt := float32(1.0 / float64(ebiten.TPS()))
	p := h.stage.Input()

	if focused := ebiten.IsFocused(); focused != h.focused {
		h.focused = focused
		h.stage.FocusManager().SetSystemFocus(focused)
	}
	if h.Script != nil {
		h.Script.Step(h.stage)
		for _, label := range h.Script.takeScreenshots() {
			h.Screenshot(label)
		}
	}
	if !p.ProcessInjected() {
		mods := readModifiers()
		h.pollPointer(p, mods)
		h.pollKeys(p, mods)
	}
	h.stage.Update(dt)

	if h.OnUpdate != nil {
		return h.OnUpdate(dt)
	}
	return nil
}

func (h *Host) pollPointer(p *InputPipeline, mods KeyModifiers) {
	x, y := ebiten.CursorPosition()
	fx, fy := float64(x), float64(y)
	if x != h.lastX || y != h.lastY {
		h.lastX, h.lastY = x, y
		p.HandlePointer(RawPointerEvent{Kind: PointerMove, X: fx, Y: fy, Modifiers: mods})
	}
	for _, b := range hostButtons {
		if inpututil.IsMouseButtonJustPressed(b.eb) {
			p.HandlePointer(RawPointerEvent{Kind: PointerPress, X: fx, Y: fy, Button: b.mb, Modifiers: mods})
		}
		if inpututil.IsMouseButtonJustReleased(b.eb) {
			p.HandlePointer(RawPointerEvent{Kind: PointerRelease, X: fx, Y: fy, Button: b.mb, Modifiers: mods})
		}
	}
	if wx, wy := ebiten.Wheel(); wx != 0 || wy != 0 {
		p.HandlePointer(RawPointerEvent{Kind: PointerWheel, X: fx, Y: fy, WheelX: wx, WheelY: wy, Modifiers: mods})
	}
}

func (h *Host) pollKeys(p *InputPipeline, mods KeyModifiers) {
	h.keys = inpututil.AppendJustPressedKeys(h.keys[:0])
	for _, k := range h.keys {
		p.HandleKey(RawKeyEvent{Kind: KeyPress, Code: k, Modifiers: mods})
	}
	h.keys = inpututil.AppendJustReleasedKeys(h.keys[:0])
	for _, k := range h.keys {
		p.HandleKey(RawKeyEvent{Kind: KeyRelease, Code: k, Modifiers: mods})
	}
	h.chars = ebiten.AppendInputChars(h.chars[:0])
	for _, r := range h.chars {
		p.HandleKey(RawKeyEvent{Kind: KeyType, Char: r, Modifiers: mods})
	}
}

// Draw implements ebiten.Game.
func (h *Host) Draw(screen *ebiten.Image) {
	b := screen.Bounds()
	if h.canvas == nil || h.canvas.Bounds().Size() != b.Size() {
		if h.canvas != nil {
			h.canvas.Deallocate()
		}
		h.canvas = ebiten.NewImage(b.Dx(), b.Dy())
		h.stage.RequestRepaint()
	}
	if h.stage.TakeRepaint() {
		h.canvas.Clear()
		h.stage.Draw(h.canvas)
	}
	screen.DrawImage(h.canvas, nil)
	h.flushScreenshots(screen)
}

// Layout implements ebiten.Game. The stage is sized to the outside size.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	h.stage.SetSurfaceSize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}
