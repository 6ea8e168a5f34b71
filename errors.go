package facecam

import "github.com/pkg/errors"

var (
	// ErrMalformedFrame is returned when the raw buffer size does not match width*height*4.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrDetectionFailed is returned when the detector fails or returns rectangles outside of the image.
	ErrDetectionFailed = errors.New("face detection failed")
	// ErrCameraAcquisitionFailed is returned when the camera could not be created or started.
	ErrCameraAcquisitionFailed = errors.New("camera acquisition failed")
	// ErrFrameDropped is returned when a frame arrives while a cycle is still in flight
	// or while the pipeline is closed.
	ErrFrameDropped = errors.New("frame dropped")
)
