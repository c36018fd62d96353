package shoal

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	tp "github.com/xlab/treeprint"
)

func (n *Node) String() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	flags := ""
	if !n.visible {
		flags += " hidden"
	}
	if n.focusable {
		flags += fmt.Sprintf(" tab=%d", n.tabIndex)
	}
	if n.invalidated {
		flags += " invalid"
	}
	return fmt.Sprintf("%s %q #%d (%.4g,%.4g %gx%g)%s", n.kind, n.name, n.id, n.x, n.y, n.width, n.height, flags)
}

// Dump renders the subtree rooted at n, one node per line.
func (n *Node) Dump() string {
	p := tp.New()
	dumpNode(p, n)
	return p.String()
}

func dumpNode(p tp.Tree, n *Node) {
	children := n.Children()
	if len(children) == 0 {
		p.AddNode(n.String())
		return
	}
	branch := p.AddBranch(n.String())
	for _, c := range children {
		dumpNode(branch, c)
	}
}

// debugLog traces the stats of one repaint.
func (s *Stage) debugLog(f *paintFrame, elapsed time.Duration) {
	created, idle := s.pool.stats()
	tracer().Infof("repaint: %v | nodes: %d | offscreen: %d | pool: %d textures (%d idle)",
		elapsed, f.nodes, f.offscreens, created, idle)
}

// FrameSetStats summarizes the pixel memory of frame sets for debug
// overlays, e.g. "3 frame sets, 42 frames, 1.2 MB".
func FrameSetStats(sets ...*FrameSet) string {
	var frames int
	var bytes uint64
	for _, fs := range sets {
		if fs == nil {
			continue
		}
		frames += fs.Len()
		bytes += fs.Bytes()
	}
	return fmt.Sprintf("%d frame sets, %d frames, %s", len(sets), frames, humanize.Bytes(bytes))
}
