// Package shoal is the retained-mode scene graph and event-dispatch engine
// behind a 2D arcade game built on [Ebitengine].
//
// Shoal owns the node tree, transform composition, invalidation, typed
// events with two-tier listeners and bubbling, pointer hit-testing, keyboard
// focus with tab order, and frame-set sprite animation driven by a shared
// scheduler. Widgets, dialogs, game rules, audio and asset loading are built
// on top of it.
//
// # Quick start
//
//	stage := shoal.NewStage(shoal.StageConfig{Width: 640, Height: 480})
//
//	fish := shoal.NewFill("fish", 48, 24, shoal.Color{R: 1, G: 0.5, B: 0, A: 1})
//	fish.SetPosition(100, 80)
//	fish.OnClick(func(e *shoal.PointerEvent) {
//		fmt.Println("clicked", e.ClickCount)
//	})
//	_ = stage.Node().AddChild(fish)
//
//	ebiten.RunGame(shoal.NewHost(stage))
//
// # Scene graph
//
// Every element is a [Node]. A node's (centerX, centerY) always lands on
// (x, y) in its parent, whatever its rotation or scale. Children paint on
// top of their parent in list order, and hit-testing walks them in the
// reverse order so the node drawn last is picked first.
//
// A [Stage] is a node that either roots a tree (and owns the
// [FocusManager] and [InputPipeline]) or nests inside one as a clipping
// container.
//
// # Events
//
// Each node carries lazily allocated [Listeners], one [Registry] per event
// category. Regular listeners run first in registration order; default
// listeners run afterwards only while the event is not consumed. Pointer
// and key events bubble from the target to the root until propagation is
// stopped.
//
// # Concurrency
//
// Animations tick on a background [Scheduler] while the host goroutine
// delivers input and paints. Nodes, animations, frame sets, registries and
// the focus manager each guard their own state; listeners never run while
// a lock is held. Edits touching two nodes lock the parent before the
// child.
//
// [Ebitengine]: https://ebitengine.org
package shoal

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'shoal'.
func tracer() tracing.Trace {
	return tracing.Select("shoal")
}
