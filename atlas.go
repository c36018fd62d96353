package shoal

import (
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"slices"
)

// FrameSetFromAtlas builds a FrameSet from TexturePacker JSON and its page
// images. Both the hash format (a single "frames" object) and the array
// format (a "textures" list with one entry per page) are accepted. Frames
// are named after their atlas keys and ordered by name, so "swim_00" ..
// "swim_07" become an animation strip. Trimmed and rotated regions are
// restored to their authored size and orientation.
func FrameSetFromAtlas(jsonData []byte, pages ...image.Image) (*FrameSet, error) {
	var probe struct {
		Frames   json.RawMessage `json:"frames"`
		Textures json.RawMessage `json:"textures"`
	}
	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("shoal: parse atlas JSON: %w", err)
	}

	regions := make(map[string]atlasRegion)
	switch {
	case probe.Textures != nil:
		var textures []struct {
			Frames map[string]atlasFrame `json:"frames"`
		}
		if err := json.Unmarshal(probe.Textures, &textures); err != nil {
			return nil, fmt.Errorf("shoal: parse atlas textures: %w", err)
		}
		for i, tex := range textures {
			for name, f := range tex.Frames {
				regions[name] = atlasRegion{page: i, frame: f}
			}
		}
	case probe.Frames != nil:
		var frames map[string]atlasFrame
		if err := json.Unmarshal(probe.Frames, &frames); err != nil {
			return nil, fmt.Errorf("shoal: parse atlas frames: %w", err)
		}
		for name, f := range frames {
			regions[name] = atlasRegion{page: 0, frame: f}
		}
	default:
		return nil, fmt.Errorf("shoal: atlas JSON has neither \"frames\" nor \"textures\": %w", ErrInvalidArgument)
	}

	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	slices.Sort(names)

	fs := NewFrameSet()
	for _, name := range names {
		r := regions[name]
		if r.page >= len(pages) || pages[r.page] == nil {
			return nil, fmt.Errorf("shoal: atlas frame %q on page %d of %d: %w", name, r.page, len(pages), ErrIndexOutOfRange)
		}
		img := r.frame.extract(pages[r.page])
		b := img.Bounds()
		if _, err := fs.Add(Frame{Width: b.Dx(), Height: b.Dy(), Name: name, Image: img}); err != nil {
			return nil, err
		}
	}
	tracer().Debugf("atlas: loaded %s", fs)
	return fs, nil
}

type atlasRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type atlasFrame struct {
	Frame            atlasRect `json:"frame"`
	Rotated          bool      `json:"rotated"`
	Trimmed          bool      `json:"trimmed"`
	SpriteSourceSize atlasRect `json:"spriteSourceSize"`
	SourceSize       struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"sourceSize"`
}

type atlasRegion struct {
	page  int
	frame atlasFrame
}

// extract copies the region out of page into an image of the authored size.
func (f atlasFrame) extract(page image.Image) image.Image {
	pb := page.Bounds()
	// For rotated frames w and h are the authored orientation; the packed
	// area on the page is h wide and w tall.
	w, h := f.Frame.W, f.Frame.H
	outW, outH := f.SourceSize.W, f.SourceSize.H
	if outW <= 0 || outH <= 0 {
		outW, outH = w, h
	}
	out := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	ox, oy := 0, 0
	if f.Trimmed {
		ox, oy = f.SpriteSourceSize.X, f.SpriteSourceSize.Y
	}

	if !f.Rotated {
		src := image.Pt(pb.Min.X+f.Frame.X, pb.Min.Y+f.Frame.Y)
		draw.Draw(out, image.Rect(ox, oy, ox+w, oy+h), page, src, draw.Src)
		return out
	}
	// Undo the clockwise rotation: output (x, y) is packed (h-1-y, x).
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := pb.Min.X + f.Frame.X + (h - 1 - y)
			py := pb.Min.Y + f.Frame.Y + x
			out.Set(ox+x, oy+y, page.At(px, py))
		}
	}
	return out
}
