package shoal

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// FPSInterval is how often an FPS meter refreshes its readout.
const FPSInterval = 500 * time.Millisecond

// NewFPSMeter creates a 100x32 node showing Ebitengine's actual FPS and TPS.
// The readout refreshes on sched every FPSInterval while the node is on a
// root stage. A nil sched uses DefaultScheduler.
func NewFPSMeter(name string, sched Scheduler) *Node {
	if sched == nil {
		sched = DefaultScheduler()
	}
	n := NewContainer(name)
	n.width, n.height = 100, 32
	n.mouseEnabled = false

	var (
		img  *ebiten.Image
		text string
		task Task
	)
	n.OnValidate = func(n *Node) {
		text = fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS())
		if img != nil {
			img.Clear()
			img.Fill(color.RGBA{0, 0, 0, 128})
			ebitenutil.DebugPrint(img, text)
		}
	}
	n.Paint = func(n *Node, dst *ebiten.Image, geo ebiten.GeoM, cs ebiten.ColorScale) {
		if img == nil {
			img = ebiten.NewImage(100, 32)
			img.Fill(color.RGBA{0, 0, 0, 128})
			ebitenutil.DebugPrint(img, text)
		}
		var op ebiten.DrawImageOptions
		op.GeoM = geo
		op.ColorScale = cs
		dst.DrawImage(img, &op)
	}

	l := n.Listeners()
	l.Tree.Add(only(EventAddedToRootStage, func(*TreeEvent) {
		if task != nil {
			task.Cancel()
		}
		task = sched.Schedule(FPSInterval, FPSInterval, n.Invalidate)
	}))
	l.Tree.Add(only(EventRemovedFromRootStage, func(*TreeEvent) {
		if task != nil {
			task.Cancel()
			task = nil
		}
	}))
	return n
}
