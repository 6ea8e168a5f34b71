package facecam

import (
	"image"
)

// PixelFormat describes the channel layout of a texture handed to a Surface.
type PixelFormat string

// FormatRGBA is the only texture format produced by the pipeline.
const FormatRGBA PixelFormat = "rgba"

// RawFrame is an interleaved RGBA pixel buffer delivered by a camera once per capture tick.
// The pipeline owns it for the duration of one cycle and never retains it afterwards.
type RawFrame struct {
	Pix    []uint8
	Width  int
	Height int
}

// OrientedFrame is the upright version of a RawFrame.
// Pix holds the RGB channels (3 bytes per pixel), while Texture keeps
// the same pixels, alpha included, for displaying them on the surface.
type OrientedFrame struct {
	Pix     []uint8
	Width   int
	Height  int
	Texture *image.NRGBA
}

// LumaFrame is a single channel intensity array consumed by the face detector.
type LumaFrame struct {
	Pix    []uint8
	Width  int
	Height int
}

// FaceRect is an axis aligned face rectangle in image space (origin top-left, y grows downward).
type FaceRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// within reports whether the rectangle is non-negative and fits inside a w x h image.
func (r FaceRect) within(w, h int) bool {
	if r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 {
		return false
	}
	return r.X+r.Width <= w && r.Y+r.Height <= h
}

// OverlayRect is a rectangle in display space (origin bottom-left, y grows upward).
type OverlayRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Resolution is the capture size requested from a camera.
// Negative values leave the choice to the camera driver.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultResolution lets the camera pick its native resolution.
var DefaultResolution = Resolution{Width: -1, Height: -1}

// IsDefault reports whether the driver should choose the resolution.
func (r Resolution) IsDefault() bool {
	return r.Width < 0 || r.Height < 0
}

// CameraConfig is the camera state owned by the Lifecycle.
type CameraConfig struct {
	CameraIndex int
	Resolution  Resolution
	Playing     bool
}

// RenderState is everything the render loop shows for one published cycle.
// It is always replaced wholesale, never mutated in place.
// The zero value is the cleared state: no texture and no overlays.
type RenderState struct {
	Texture  *image.NRGBA
	Overlays []OverlayRect
	Faces    int
	Seq      uint64
}
