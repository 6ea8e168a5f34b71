package facecam

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Stage is the step of the pipeline cycle currently executed by the Processor.
type Stage int32

const (
	Idle Stage = iota
	Capturing
	Correcting
	Detecting
	Mapping
	Publishing
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Correcting:
		return "correcting"
	case Detecting:
		return "detecting"
	case Mapping:
		return "mapping"
	case Publishing:
		return "publishing"
	}
	return "unknown"
}

// Sizer reports the current size of the render surface.
type Sizer interface {
	Size() (width, height float64)
}

// SizerFunc adapts an ordinary function to the Sizer interface.
type SizerFunc func() (float64, float64)

// Size calls f().
func (f SizerFunc) Size() (float64, float64) { return f() }

// Stats is a snapshot of the Processor counters.
type Stats struct {
	Processed uint64 // frames which reached the publishing stage
	Dropped   uint64 // frames rejected because a cycle was in flight or the pipeline was closed
	Failed    uint64 // cycles aborted by a malformed frame or a detection failure
	Published uint64 // render states handed to the publisher
}

// Processor drives one frame through the pipeline stages and publishes the
// resulting render state. At most one cycle is in flight at any time:
// frames arriving while a cycle is running are dropped.
type Processor struct {
	Platform    Platform
	Orientation Orientation
	Upsample    int

	detector  Detector
	publisher Publisher
	sizer     Sizer
	logger    zerolog.Logger

	busy   chan struct{}
	stage  atomic.Int32
	closed atomic.Bool

	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	published atomic.Uint64
}

// Option customizes a Processor.
type Option func(*Processor)

// WithPlatform sets the platform used for the orientation correction.
func WithPlatform(p Platform) Option {
	return func(proc *Processor) { proc.Platform = p }
}

// WithOrientation replaces the default orientation table.
func WithOrientation(o Orientation) Option {
	return func(proc *Processor) { proc.Orientation = o }
}

// WithUpsample sets the detector upsample factor.
func WithUpsample(n int) Option {
	return func(proc *Processor) { proc.Upsample = n }
}

// WithLogger sets the logger used for reporting failed cycles.
func WithLogger(l zerolog.Logger) Option {
	return func(proc *Processor) { proc.logger = l }
}

// NewProcessor creates a Processor publishing to pub. When sizer is nil
// or reports an empty surface, overlays are expressed in frame pixels.
func NewProcessor(det Detector, pub Publisher, sizer Sizer, opts ...Option) *Processor {
	p := &Processor{
		Platform:    PlatformOther,
		Orientation: DefaultOrientation,
		detector:    det,
		publisher:   pub,
		sizer:       sizer,
		logger:      zerolog.Nop(),
		busy:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleFrame runs a full cycle over the frame captured by the camera with the given index.
// It returns ErrFrameDropped without touching the frame when another cycle is in flight.
func (p *Processor) HandleFrame(frame RawFrame, cameraIndex int) error {
	if p.closed.Load() {
		p.dropped.Add(1)
		return ErrFrameDropped
	}
	select {
	case p.busy <- struct{}{}:
	default:
		p.dropped.Add(1)
		return ErrFrameDropped
	}
	defer func() {
		p.stage.Store(int32(Idle))
		<-p.busy
	}()

	// The pipeline might have been closed while we were acquiring the slot.
	if p.closed.Load() {
		p.dropped.Add(1)
		return ErrFrameDropped
	}

	err := p.cycle(frame, cameraIndex)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn().Err(err).
			Int("camera", cameraIndex).
			Int("width", frame.Width).
			Int("height", frame.Height).
			Msg("frame cycle aborted")
	}
	return err
}

func (p *Processor) cycle(frame RawFrame, cameraIndex int) error {
	p.setStage(Capturing)

	p.setStage(Correcting)
	oriented, err := p.Orientation.Correct(frame, p.Platform, cameraIndex)
	if err != nil {
		// Nothing is published: the previous render state stays on screen.
		return err
	}
	gray := Luma(oriented)

	p.setStage(Detecting)
	faces, err := DetectFaces(p.detector, gray, p.Upsample)
	if err != nil {
		p.setStage(Publishing)
		// Clear the overlays rather than leaving the stale ones visible.
		p.publish(RenderState{Texture: oriented.Texture})
		return err
	}

	p.setStage(Mapping)
	surfW, surfH := p.surfaceSize(gray.Width, gray.Height)
	overlays := MapRects(faces, gray.Width, gray.Height, surfW, surfH)

	p.setStage(Publishing)
	p.processed.Add(1)
	p.publish(RenderState{
		Texture:  oriented.Texture,
		Overlays: overlays,
		Faces:    len(faces),
	})
	p.logger.Debug().Int("faces", len(faces)).Int("camera", cameraIndex).Msg("frame published")

	return nil
}

func (p *Processor) publish(state RenderState) {
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(state)
	p.published.Add(1)
}

func (p *Processor) surfaceSize(imgW, imgH int) (float64, float64) {
	if p.sizer != nil {
		if w, h := p.sizer.Size(); w > 0 && h > 0 {
			return w, h
		}
	}
	return float64(imgW), float64(imgH)
}

func (p *Processor) setStage(s Stage) {
	p.stage.Store(int32(s))
}

// Stage returns the stage of the cycle in flight, or Idle.
func (p *Processor) Stage() Stage {
	return Stage(p.stage.Load())
}

// Open lets new frames into the pipeline.
func (p *Processor) Open() {
	p.closed.Store(false)
}

// Close makes the pipeline drop every new frame. The cycle in flight, if any, is not interrupted.
func (p *Processor) Close() {
	p.closed.Store(true)
}

// Drain blocks until the cycle in flight, if any, has published its result.
func (p *Processor) Drain() {
	p.busy <- struct{}{}
	<-p.busy
}

// Stats returns a snapshot of the processing counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
		Published: p.published.Load(),
	}
}
