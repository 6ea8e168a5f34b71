// Package camera provides the frame sources feeding the face detection pipeline.
package camera

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/esimov/facecam"
	"github.com/esimov/facecam/utils"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
)

// validExtensions are the image files picked up from a replay directory.
var validExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// Replay is a camera replaying a fixed set of frames in a loop at a constant rate.
// It is used where no capture device is available.
type Replay struct {
	mu      sync.Mutex
	frames  []facecam.RawFrame
	delay   time.Duration
	onFrame facecam.FrameHandler
	stop    chan struct{}
	done    chan struct{}
}

var _ facecam.Camera = (*Replay)(nil)

// NewReplay creates a replay camera delivering fps frames per second to onFrame.
func NewReplay(frames []facecam.RawFrame, fps int, onFrame facecam.FrameHandler) *Replay {
	if fps <= 0 {
		fps = 1
	}
	return &Replay{
		frames:  frames,
		delay:   time.Second / time.Duration(fps),
		onFrame: onFrame,
	}
}

// Start launches the capture goroutine.
func (r *Replay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return errors.New("replay camera already started")
	}
	if len(r.frames) == 0 {
		return errors.New("no frames to replay")
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.run(r.stop, r.done)

	return nil
}

// Stop terminates the capture goroutine. No frame is delivered after Stop returns.
func (r *Replay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop == nil {
		return nil
	}
	close(r.stop)
	<-r.done
	r.stop, r.done = nil, nil

	return nil
}

func (r *Replay) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.delay)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(r.frames) {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// Stop might have been requested while waiting for the tick.
		select {
		case <-stop:
			return
		default:
		}
		r.onFrame(r.frames[i])
	}
}

// ReplayFactory loads the frames once and returns a camera factory replaying them.
// The source is an image file, a directory of images or an image URL.
// The camera index has no meaning for a replay; the requested resolution is honored by resizing the frames.
func ReplayFactory(src string, fps int) (facecam.CameraFactory, error) {
	frames, err := LoadFrames(src)
	if err != nil {
		return nil, err
	}
	return func(cfg facecam.CameraConfig, onFrame facecam.FrameHandler) (facecam.Camera, error) {
		if cfg.Resolution.IsDefault() {
			return NewReplay(frames, fps, onFrame), nil
		}
		resized := make([]facecam.RawFrame, len(frames))
		for i, f := range frames {
			resized[i] = resize(f, cfg.Resolution)
		}
		return NewReplay(resized, fps, onFrame), nil
	}, nil
}

// LoadFrames decodes the images found at src into raw RGBA frames.
func LoadFrames(src string) ([]facecam.RawFrame, error) {
	if utils.IsValidUrl(src) {
		f, err := utils.DownloadImage(src)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load the source image")
		}
		defer os.Remove(f.Name())
		defer f.Close()

		frame, err := decodeFrame(f.Name())
		if err != nil {
			return nil, err
		}
		return []facecam.RawFrame{frame}, nil
	}

	fs, err := os.Stat(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load the source image")
	}
	paths := []string{src}
	if fs.IsDir() {
		if paths, err = walkDir(src); err != nil {
			return nil, err
		}
	}

	frames := make([]facecam.RawFrame, 0, len(paths))
	for _, path := range paths {
		frame, err := decodeFrame(path)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("no image found in %s", src)
	}
	return frames, nil
}

// walkDir returns the sorted path names of the supported images found in the directory tree.
func walkDir(src string) ([]string, error) {
	var paths []string

	err := filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !f.Mode().IsRegular() {
			return nil
		}
		if isValidExtension(strings.ToLower(filepath.Ext(f.Name()))) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not walk %s", src)
	}
	sort.Strings(paths)

	return paths, nil
}

// isValidExtension checks for the supported extensions.
func isValidExtension(ext string) bool {
	for _, ex := range validExtensions {
		if ex == ext {
			return true
		}
	}
	return false
}

// decodeFrame decodes an image file into a raw RGBA frame.
func decodeFrame(path string) (facecam.RawFrame, error) {
	ctype, err := utils.DetectContentType(path)
	if err != nil {
		return facecam.RawFrame{}, err
	}
	if !strings.Contains(ctype, "image") {
		return facecam.RawFrame{}, errors.Errorf("%s should be an image file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return facecam.RawFrame{}, errors.Wrap(err, "could not open the image file")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return facecam.RawFrame{}, errors.Wrapf(err, "could not decode %s", path)
	}
	return toFrame(img), nil
}

// toFrame converts any image type into a raw frame with min-point at (0, 0).
func toFrame(img image.Image) facecam.RawFrame {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()

	return facecam.RawFrame{
		Pix:    nrgba.Pix,
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}

// resize scales the frame to the requested resolution.
func resize(f facecam.RawFrame, res facecam.Resolution) facecam.RawFrame {
	src := &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
	return toFrame(imaging.Resize(src, res.Width, res.Height, imaging.Lanczos))
}
