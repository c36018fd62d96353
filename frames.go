package shoal

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
)

// Frame is one image of a FrameSet. Frames are values; a FrameSet hands out
// copies.
type Frame struct {
	Width, Height int
	// Delay is how long the frame is meant to be displayed. Informational:
	// animations tick at their own frame rate.
	Delay time.Duration
	// Name is optional and unique within the owning FrameSet.
	Name  string
	Image image.Image
}

// Opaque reports whether the pixel at (x, y), in frame coordinates, is not
// fully transparent. Frames without an image are treated as solid.
func (f Frame) Opaque(x, y int) bool {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return false
	}
	if f.Image == nil {
		return true
	}
	b := f.Image.Bounds()
	_, _, _, a := f.Image.At(b.Min.X+x, b.Min.Y+y).RGBA()
	return a > 0
}

// FrameSet is an ordered collection of frames shared by any number of
// animations. It is safe for concurrent use.
type FrameSet struct {
	mu     sync.RWMutex
	frames []Frame
	names  map[string]int

	maxValid   bool
	maxW, maxH int

	images map[int]*ebiten.Image
}

// NewFrameSet returns an empty frame set. The zero FrameSet is also ready
// to use.
func NewFrameSet() *FrameSet {
	return &FrameSet{}
}

// Add appends f and returns its index.
func (fs *FrameSet) Add(f Frame) (int, error) {
	if f.Width < 0 || f.Height < 0 {
		return -1, fmt.Errorf("shoal: frame %dx%d: %w", f.Width, f.Height, ErrNegativeSize)
	}
	if f.Delay < 0 {
		return -1, fmt.Errorf("shoal: frame delay %v: %w", f.Delay, ErrNegativeDelay)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f.Name != "" {
		if _, taken := fs.names[f.Name]; taken {
			return -1, fmt.Errorf("shoal: frame %q: %w", f.Name, ErrDuplicateFrameName)
		}
	}
	fs.frames = append(fs.frames, f)
	i := len(fs.frames) - 1
	if f.Name != "" {
		fs.setName(f.Name, i)
	}
	fs.maxValid = false
	return i, nil
}

// SetFrameName names the frame at index. An empty name clears it. Taking a
// name held by another frame fails with ErrDuplicateFrameName.
func (fs *FrameSet) SetFrameName(index int, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if index < 0 || index >= len(fs.frames) {
		return fmt.Errorf("shoal: frame %d of %d: %w", index, len(fs.frames), ErrFrameIndex)
	}
	if name != "" {
		if held, taken := fs.names[name]; taken && held != index {
			return fmt.Errorf("shoal: frame %q: %w", name, ErrDuplicateFrameName)
		}
	}
	if old := fs.frames[index].Name; old != "" {
		delete(fs.names, old)
	}
	fs.frames[index].Name = name
	if name != "" {
		fs.setName(name, index)
	}
	return nil
}

// setName records name for index. Caller holds fs.mu.
func (fs *FrameSet) setName(name string, index int) {
	if fs.names == nil {
		fs.names = make(map[string]int)
	}
	fs.names[name] = index
}

// Len returns the number of frames.
func (fs *FrameSet) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.frames)
}

// Frame returns a copy of the frame at index.
func (fs *FrameSet) Frame(index int) (Frame, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if index < 0 || index >= len(fs.frames) {
		return Frame{}, fmt.Errorf("shoal: frame %d of %d: %w", index, len(fs.frames), ErrFrameIndex)
	}
	return fs.frames[index], nil
}

// IndexOf returns the index of the frame called name.
func (fs *FrameSet) IndexOf(name string) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	i, ok := fs.names[name]
	if !ok {
		return -1, fmt.Errorf("shoal: frame %q: %w", name, ErrUnknownFrameName)
	}
	return i, nil
}

// MaxWidth returns the widest frame's width.
func (fs *FrameSet) MaxWidth() int {
	w, _ := fs.maxSize()
	return w
}

// MaxHeight returns the tallest frame's height.
func (fs *FrameSet) MaxHeight() int {
	_, h := fs.maxSize()
	return h
}

func (fs *FrameSet) maxSize() (int, int) {
	fs.mu.RLock()
	if fs.maxValid {
		w, h := fs.maxW, fs.maxH
		fs.mu.RUnlock()
		return w, h
	}
	fs.mu.RUnlock()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.maxValid {
		fs.maxW, fs.maxH = 0, 0
		for _, f := range fs.frames {
			fs.maxW = max(fs.maxW, f.Width)
			fs.maxH = max(fs.maxH, f.Height)
		}
		fs.maxValid = true
	}
	return fs.maxW, fs.maxH
}

// Bytes estimates the pixel memory held by the frames, at 4 bytes per pixel.
func (fs *FrameSet) Bytes() uint64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	var total uint64
	for _, f := range fs.frames {
		total += uint64(f.Width) * uint64(f.Height) * 4
	}
	return total
}

func (fs *FrameSet) String() string {
	w, h := fs.maxSize()
	return fmt.Sprintf("FrameSet{frames: %d, max: %dx%d, pixels: %s}", fs.Len(), w, h, humanize.Bytes(fs.Bytes()))
}

// ebitenImage returns the GPU image for the frame at index, uploading it on
// first use. Frames without an image return nil.
func (fs *FrameSet) ebitenImage(index int) *ebiten.Image {
	fs.mu.RLock()
	img, ok := fs.images[index]
	var src image.Image
	if index >= 0 && index < len(fs.frames) {
		src = fs.frames[index].Image
	}
	fs.mu.RUnlock()
	if ok || src == nil {
		return img
	}
	if e, isEbiten := src.(*ebiten.Image); isEbiten {
		img = e
	} else {
		img = ebiten.NewImageFromImage(src)
	}
	fs.mu.Lock()
	if fs.images == nil {
		fs.images = make(map[int]*ebiten.Image)
	}
	fs.images[index] = img
	fs.mu.Unlock()
	return img
}
