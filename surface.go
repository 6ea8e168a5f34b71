package facecam

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/disintegration/imaging"
)

// Surface is the render target. All of its methods except Size
// must be invoked from the render loop goroutine only.
type Surface interface {
	SetTexture(pix []uint8, width, height int, format PixelFormat)
	SetOverlays(overlays []OverlayRect)
	SetStatus(status string)
	Size() (width, height float64)
}

// StatusText returns the human readable face count shown next to the video.
func StatusText(faces int) string {
	return fmt.Sprintf("Detected faces: %d", faces)
}

// Apply replaces the whole visual state of the surface with the render state.
func Apply(s Surface, state RenderState) {
	if state.Texture == nil {
		s.SetTexture(nil, 0, 0, FormatRGBA)
	} else {
		b := state.Texture.Bounds()
		s.SetTexture(state.Texture.Pix, b.Dx(), b.Dy(), FormatRGBA)
	}
	overlays := state.Overlays
	if overlays == nil {
		overlays = []OverlayRect{}
	}
	s.SetOverlays(overlays)
	s.SetStatus(StatusText(state.Faces))
}

// Canvas is an in-memory Surface, used when no window is available.
// It can render the current state into an image through Snapshot.
type Canvas struct {
	mu       sync.RWMutex
	width    float64
	height   float64
	texture  *image.NRGBA
	overlays []OverlayRect
	status   string
	updates  int
}

var _ Surface = (*Canvas)(nil)

// NewCanvas creates a canvas of the given display size.
func NewCanvas(width, height float64) *Canvas {
	return &Canvas{width: width, height: height}
}

// SetTexture stores a copy of the pixel buffer. A nil buffer clears the texture.
func (c *Canvas) SetTexture(pix []uint8, width, height int, format PixelFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.updates++
	if pix == nil || format != FormatRGBA {
		c.texture = nil
		return
	}
	c.texture = imaging.Clone(&image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	})
}

// SetOverlays replaces the overlay rectangles.
func (c *Canvas) SetOverlays(overlays []OverlayRect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.overlays = make([]OverlayRect, len(overlays))
	copy(c.overlays, overlays)
}

// SetStatus replaces the status line.
func (c *Canvas) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

// Size returns the display size of the canvas.
func (c *Canvas) Size() (float64, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.width, c.height
}

// Resize changes the display size, the way a window resize would.
func (c *Canvas) Resize(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.width, c.height = width, height
}

// Overlays returns the overlay rectangles currently shown.
func (c *Canvas) Overlays() []OverlayRect {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]OverlayRect, len(c.overlays))
	copy(out, c.overlays)

	return out
}

// Status returns the status line currently shown.
func (c *Canvas) Status() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.status
}

// Updates returns the number of textures applied so far, cleared ones included.
func (c *Canvas) Updates() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.updates
}

// HasTexture reports whether a texture is currently shown.
func (c *Canvas) HasTexture() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.texture != nil
}

// Snapshot renders the texture stretched over the canvas. Every overlay is
// shaded with a translucent fill and outlined with col on top.
func (c *Canvas) Snapshot(col color.Color) *image.NRGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()

	w, h := int(math.Round(c.width)), int(math.Round(c.height))
	var dst *image.NRGBA
	if c.texture != nil {
		dst = imaging.Resize(c.texture, w, h, imaging.NearestNeighbor)
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	for _, o := range c.overlays {
		r := overlayBounds(o, c.height)
		fillRect(dst, r, defaultFillColor)
		strokeRect(dst, r, col, 1)
	}
	return dst
}

// fillRect blends col over the area of r.
func fillRect(dst draw.Image, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), &image.Uniform{C: col}, image.Point{}, draw.Over)
}

// strokeRect draws the outline of r with the given line thickness.
func strokeRect(dst draw.Image, r image.Rectangle, col color.Color, thickness int) {
	src := &image.Uniform{C: col}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// Drain applies the pending render state, if any, to the surface.
// It is meant to be called once per render loop tick.
func Drain(m *Mailbox, s Surface) bool {
	state, ok := m.Take()
	if !ok {
		return false
	}
	Apply(s, state)
	return true
}
