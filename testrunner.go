package shoal

import (
	"encoding/json"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// scriptStep is a single action in an input script.
type scriptStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`
	Frames int     `json:"frames,omitempty"`
	Key    string  `json:"key,omitempty"`
	Shift  bool    `json:"shift,omitempty"`
	Text   string  `json:"text,omitempty"`
}

// InputScript sequences injected input across frames for automated
// playthroughs. Supported actions: click, press, move, release, drag, key,
// text, focus (focuses the node named by label), screenshot (asks the host
// for a capture named by label) and wait.
type InputScript struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
	shots     []string
}

// LoadInputScript parses a JSON script of the form {"steps": [...]}.
func LoadInputScript(jsonData []byte) (*InputScript, error) {
	var script struct {
		Steps []scriptStep `json:"steps"`
	}
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("shoal: parse input script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("shoal: parse input script: no steps: %w", ErrInvalidArgument)
	}
	for i, st := range script.Steps {
		if st.Action == "key" {
			var k ebiten.Key
			if err := k.UnmarshalText([]byte(st.Key)); err != nil {
				return nil, fmt.Errorf("shoal: input script step %d: key %q: %w", i, st.Key, ErrInvalidArgument)
			}
		}
	}
	return &InputScript{steps: script.Steps}, nil
}

// Done reports whether every step has run and its input was consumed.
func (r *InputScript) Done() bool {
	return r.done
}

// takeScreenshots returns and clears the labels of screenshot steps run so
// far.
func (r *InputScript) takeScreenshots() []string {
	shots := r.shots
	r.shots = nil
	return shots
}

// Step advances the script by one frame against stage's pipeline.
func (r *InputScript) Step(stage *Stage) {
	if r.done {
		return
	}
	p := stage.Input()
	if p == nil || p.Pending() > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		p.InjectClick(st.X, st.Y)
	case "press":
		p.InjectPress(st.X, st.Y)
	case "move":
		p.InjectMove(st.X, st.Y)
	case "release":
		p.InjectRelease(st.X, st.Y)
	case "drag":
		p.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, max(st.Frames, 2))
	case "key":
		var k ebiten.Key
		_ = k.UnmarshalText([]byte(st.Key))
		var mods KeyModifiers
		if st.Shift {
			mods |= ModShift
		}
		p.InjectKey(k, mods)
	case "text":
		p.InjectText(st.Text)
	case "focus":
		if n := stage.Node().Drawable(st.Label); n != nil {
			if err := n.RequestFocus(); err != nil {
				tracer().Errorf("input script: focus %q: %v", st.Label, err)
			}
		} else {
			tracer().Errorf("input script: no node named %q", st.Label)
		}
	case "screenshot":
		r.shots = append(r.shots, st.Label)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
	default:
		tracer().Errorf("input script: unknown action %q", st.Action)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && p.Pending() == 0 {
		r.done = true
	}
}
