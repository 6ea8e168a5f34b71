package facecam

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Platform identifies the device family the frames are captured on.
type Platform string

const (
	// PlatformMobile covers phones and tablets, where the sensor is mounted rotated relative to the display.
	PlatformMobile Platform = "mobile"
	// PlatformOther covers desktops and everything else; frames are passed through unrotated.
	PlatformOther Platform = "other"
)

// PlatformFromGOOS maps a runtime.GOOS value to a Platform.
func PlatformFromGOOS(goos string) Platform {
	switch strings.ToLower(goos) {
	case "android", "ios":
		return PlatformMobile
	}
	return PlatformOther
}

// Rotation is a counter clockwise rotation expressed in degrees.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Transform is the correction applied to a frame: rotation first, then the optional horizontal mirror.
type Transform struct {
	Rotation Rotation `yaml:"rotation"`
	Mirror   bool     `yaml:"mirror"`
}

// Orientation holds the mobile correction for each camera index.
// Camera indexes missing from the table are passed through unrotated.
type Orientation map[int]Transform

// DefaultOrientation assumes the usual platform convention: index 0 is the
// rear facing camera and index 1 is the front facing one.
var DefaultOrientation = Orientation{
	0: {Rotation: Rotate270, Mirror: true},
	1: {Rotation: Rotate90},
}

func (o Orientation) clone() Orientation {
	c := make(Orientation, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Lookup returns the transform for the platform and camera index pair.
func (o Orientation) Lookup(p Platform, cameraIndex int) Transform {
	if p != PlatformMobile {
		return Transform{}
	}
	if o == nil {
		o = DefaultOrientation
	}
	return o[cameraIndex]
}

// Correct normalizes the raw frame with the default orientation table.
func Correct(frame RawFrame, p Platform, cameraIndex int) (OrientedFrame, error) {
	return DefaultOrientation.Correct(frame, p, cameraIndex)
}

// Correct converts the raw RGBA buffer into an upright frame matching
// the physical camera mounting and facing.
func (o Orientation) Correct(frame RawFrame, p Platform, cameraIndex int) (OrientedFrame, error) {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pix) != frame.Width*frame.Height*4 {
		return OrientedFrame{}, errors.Wrapf(ErrMalformedFrame,
			"got %d bytes for a %dx%d frame", len(frame.Pix), frame.Width, frame.Height)
	}
	src := &image.NRGBA{
		Pix:    frame.Pix,
		Stride: frame.Width * 4,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	tex := o.Lookup(p, cameraIndex).apply(src)
	b := tex.Bounds()

	return OrientedFrame{
		Pix:     rgbPix(tex),
		Width:   b.Dx(),
		Height:  b.Dy(),
		Texture: tex,
	}, nil
}

// apply returns a new image, the source buffer is never modified.
func (t Transform) apply(src *image.NRGBA) *image.NRGBA {
	var dst *image.NRGBA

	switch t.Rotation {
	case Rotate90:
		dst = imaging.Rotate90(src)
	case Rotate180:
		dst = imaging.Rotate180(src)
	case Rotate270:
		dst = imaging.Rotate270(src)
	default:
		dst = imaging.Clone(src)
	}
	if t.Mirror {
		dst = imaging.FlipH(dst)
	}
	return dst
}

// rgbPix drops the alpha channel and returns the RGB values as a packed array.
func rgbPix(src *image.NRGBA) []uint8 {
	b := src.Bounds()
	dx, dy := b.Dx(), b.Dy()
	pix := make([]uint8, 0, dx*dy*3)

	for y := 0; y < dy; y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		row := src.Pix[off : off+dx*4]
		for x := 0; x < dx*4; x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}
	return pix
}
