package facecam

import (
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/esimov/facecam/utils"
	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"
)

// PigoParams holds the cascade options of the pigo face detector.
type PigoParams struct {
	MinSize      int     `yaml:"min_size"`
	MaxSize      int     `yaml:"max_size"`
	ShiftFactor  float64 `yaml:"shift_factor"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	Angle        float64 `yaml:"angle"`
	IoUThreshold float64 `yaml:"iou_threshold"`
	Quality      float32 `yaml:"quality"`
}

// DefaultPigoParams returns the options suitable for webcam frames.
// A zero MaxSize means the longest edge of the frame.
func DefaultPigoParams() PigoParams {
	return PigoParams{
		MinSize:      60,
		MaxSize:      0,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		Angle:        0.0,
		IoUThreshold: 0.2,
		Quality:      5.0,
	}
}

// PigoDetector implements the Detector interface on top of the pigo cascade classifier.
type PigoDetector struct {
	classifier *pigo.Pigo
	params     PigoParams
}

var _ Detector = (*PigoDetector)(nil)

// NewPigoDetector unpacks the binary cascade file.
func NewPigoDetector(cascade []byte, params PigoParams) (det *PigoDetector, err error) {
	// Unpack panics on truncated cascade files.
	defer func() {
		if r := recover(); r != nil {
			det, err = nil, errors.Errorf("error unpacking the cascade file: %v", r)
		}
	}()
	p := pigo.NewPigo()

	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := p.Unpack(cascade)
	if err != nil {
		return nil, errors.Wrap(err, "error unpacking the cascade file")
	}
	return &PigoDetector{
		classifier: classifier,
		params:     params,
	}, nil
}

// LoadPigoDetector reads the cascade file from disk.
func LoadPigoDetector(path string, params PigoParams) (*PigoDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading the cascade file")
	}
	return NewPigoDetector(cascade, params)
}

// Detect runs the cascade over the luma frame. When upsample is greater than zero
// the frame is enlarged 2^upsample times before running the classifier,
// which helps finding small faces at the cost of speed.
func (d *PigoDetector) Detect(frame LumaFrame, upsample int) ([]FaceRect, error) {
	if upsample < 0 {
		return nil, errors.Errorf("negative upsample factor: %d", upsample)
	}
	pixels, cols, rows := frame.Pix, frame.Width, frame.Height

	factor := 1 << upsample
	if factor > 1 {
		pixels, cols, rows = enlarge(frame, factor)
	}

	maxSize := d.params.MaxSize * factor
	if maxSize <= 0 {
		maxSize = utils.Max(cols, rows)
	}

	cParams := pigo.CascadeParams{
		MinSize:     d.params.MinSize * factor,
		MaxSize:     maxSize,
		ShiftFactor: d.params.ShiftFactor,
		ScaleFactor: d.params.ScaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(cParams, d.params.Angle)

	// Calculate the intersection over union (IoU) of two clusters.
	dets = d.classifier.ClusterDetections(dets, d.params.IoUThreshold)

	return detsToRects(dets, d.params.Quality, factor, frame.Width, frame.Height), nil
}

// detsToRects converts the pigo detections (center and scale) into face rectangles
// clipped to the frame bounds. Detections under the quality threshold are discarded.
func detsToRects(dets []pigo.Detection, quality float32, factor, width, height int) []FaceRect {
	faces := make([]FaceRect, 0, len(dets))
	bounds := image.Rect(0, 0, width, height)

	for _, det := range dets {
		if det.Q < quality {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(
			(det.Col-half)/factor,
			(det.Row-half)/factor,
			(det.Col+half)/factor,
			(det.Row+half)/factor,
		).Intersect(bounds)

		if r.Empty() {
			continue
		}
		faces = append(faces, FaceRect{
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
		})
	}
	return faces
}

// enlarge resizes the luma frame by the given factor.
func enlarge(frame LumaFrame, factor int) ([]uint8, int, int) {
	src := &image.Gray{
		Pix:    frame.Pix,
		Stride: frame.Width,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	cols, rows := frame.Width*factor, frame.Height*factor
	dst := imaging.Resize(src, cols, rows, imaging.Linear)

	pixels := make([]uint8, cols*rows)
	for i := range pixels {
		// The gray values are replicated on each channel, the red one is enough.
		pixels[i] = dst.Pix[i*4]
	}
	return pixels, cols, rows
}
