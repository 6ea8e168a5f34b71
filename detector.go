package facecam

import (
	"fmt"

	"github.com/pkg/errors"
)

// Detector is the face detection capability consumed by the pipeline.
// Implementations must be a pure function of their inputs: no state is
// carried over between calls.
type Detector interface {
	Detect(frame LumaFrame, upsample int) ([]FaceRect, error)
}

// DetectorFunc adapts an ordinary function to the Detector interface.
type DetectorFunc func(frame LumaFrame, upsample int) ([]FaceRect, error)

// Detect calls f(frame, upsample).
func (f DetectorFunc) Detect(frame LumaFrame, upsample int) ([]FaceRect, error) {
	return f(frame, upsample)
}

// DetectFaces invokes the detector over the luma frame and returns the face
// rectangles in the detector's native order. Detector errors and rectangles
// falling outside of the frame are both reported as ErrDetectionFailed;
// a detector error also stays reachable through errors.Is.
func DetectFaces(d Detector, frame LumaFrame, upsample int) ([]FaceRect, error) {
	if d == nil {
		return nil, errors.Wrap(ErrDetectionFailed, "no detector")
	}
	if len(frame.Pix) != frame.Width*frame.Height || frame.Width <= 0 || frame.Height <= 0 {
		return nil, errors.Wrapf(ErrDetectionFailed, "invalid %dx%d luma frame", frame.Width, frame.Height)
	}

	faces, err := d.Detect(frame, upsample)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}
	for i, r := range faces {
		if !r.within(frame.Width, frame.Height) {
			return nil, errors.Wrapf(ErrDetectionFailed,
				"face #%d %+v exceeds the %dx%d frame", i, r, frame.Width, frame.Height)
		}
	}
	return faces, nil
}
