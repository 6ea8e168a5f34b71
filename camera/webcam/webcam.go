// Package webcam captures frames from a local camera device through OpenCV.
package webcam

import (
	"sync"

	"github.com/esimov/facecam"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Device is a camera backed by a gocv VideoCapture.
type Device struct {
	mu      sync.Mutex
	cfg     facecam.CameraConfig
	onFrame facecam.FrameHandler
	logger  zerolog.Logger
	capture *gocv.VideoCapture
	stop    chan struct{}
	done    chan struct{}
	failed  chan error
}

var (
	_ facecam.Camera          = (*Device)(nil)
	_ facecam.FailureReporter = (*Device)(nil)
)

// Factory returns a camera factory opening the device matching the camera index.
func Factory(logger zerolog.Logger) facecam.CameraFactory {
	return func(cfg facecam.CameraConfig, onFrame facecam.FrameHandler) (facecam.Camera, error) {
		return &Device{
			cfg:     cfg,
			onFrame: onFrame,
			logger:  logger.With().Int("camera", cfg.CameraIndex).Logger(),
			failed:  make(chan error, 1),
		}, nil
	}
}

// Start opens the device, if needed, and launches the capture goroutine.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		return errors.New("camera already started")
	}
	if d.capture == nil {
		capture, err := gocv.OpenVideoCapture(d.cfg.CameraIndex)
		if err != nil {
			return errors.Wrapf(err, "could not open camera #%d", d.cfg.CameraIndex)
		}
		if !d.cfg.Resolution.IsDefault() {
			capture.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Resolution.Width))
			capture.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Resolution.Height))
		}
		d.capture = capture
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	go d.run(d.capture, d.stop, d.done)

	return nil
}

// Failed yields the error which made the capture goroutine give up.
func (d *Device) Failed() <-chan error {
	return d.failed
}

// Stop terminates the capture goroutine. No frame is delivered after Stop returns.
// The device stays open until Close is called, so the camera can be restarted quickly.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop == nil {
		return nil
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil

	return nil
}

// Close stops the capture and releases the device.
func (d *Device) Close() error {
	if err := d.Stop(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil

	return err
}

func (d *Device) run(capture *gocv.VideoCapture, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	img := gocv.NewMat()
	defer img.Close()
	rgba := gocv.NewMat()
	defer rgba.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := capture.Read(&img); !ok {
			d.logger.Warn().Msg("could not read from the camera device")
			select {
			case d.failed <- errors.Errorf("could not read from camera #%d", d.cfg.CameraIndex):
			default:
			}
			return
		}
		if img.Empty() {
			continue
		}
		gocv.CvtColor(img, &rgba, gocv.ColorBGRToRGBA)

		// ToBytes returns a copy, the frame owns its buffer.
		d.onFrame(facecam.RawFrame{
			Pix:    rgba.ToBytes(),
			Width:  rgba.Cols(),
			Height: rgba.Rows(),
		})
	}
}
