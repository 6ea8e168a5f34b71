package facecam

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State is the camera lifecycle state.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Switching
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Switching:
		return "switching"
	}
	return "unknown"
}

// Camera is a capture device. After Stop returns no more frames are delivered.
type Camera interface {
	Start() error
	Stop() error
}

// FrameHandler is invoked by a camera, on its own goroutine, each time a frame is ready.
type FrameHandler func(frame RawFrame)

// FailureReporter is implemented by cameras which can stop delivering frames
// on their own, e.g. when the device is unplugged. The channel yields the cause.
type FailureReporter interface {
	Failed() <-chan error
}

// CameraFactory acquires the camera described by cfg. Frames are delivered
// to onFrame only between Start and Stop.
type CameraFactory func(cfg CameraConfig, onFrame FrameHandler) (Camera, error)

// Observer is notified about every lifecycle transition, in the order they happen.
// Observers are called with the lifecycle locked and must not call back into it.
type Observer interface {
	OnStateChange(from, to State)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(from, to State)

// OnStateChange calls f(from, to).
func (f ObserverFunc) OnStateChange(from, to State) { f(from, to) }

// Lifecycle manages the play, pause and camera switch transitions.
// A camera is never read from after being stopped and never started twice.
// The camera handle is re-acquired only from the Stopped state.
type Lifecycle struct {
	mu        sync.Mutex
	state     State
	cfg       CameraConfig
	cam       Camera
	unwatch   chan struct{}
	factory   CameraFactory
	proc      *Processor
	publisher Publisher
	observers []Observer
	logger    zerolog.Logger
}

// NewLifecycle creates a stopped lifecycle. The processor receives the camera frames
// and the publisher is used for clearing the render state on pause.
func NewLifecycle(factory CameraFactory, proc *Processor, pub Publisher, cfg CameraConfig) *Lifecycle {
	cfg.Playing = false
	return &Lifecycle{
		state:     Stopped,
		cfg:       cfg,
		factory:   factory,
		proc:      proc,
		publisher: pub,
		logger:    zerolog.Nop(),
	}
}

// SetLogger sets the logger used for reporting the transitions.
func (l *Lifecycle) SetLogger(logger zerolog.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger = logger
}

// Subscribe registers an observer.
func (l *Lifecycle) Subscribe(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observers = append(l.observers, o)
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// Config returns a copy of the camera configuration.
func (l *Lifecycle) Config() CameraConfig {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.cfg
}

// Play starts the camera. It is a no-op when the camera is already running.
func (l *Lifecycle) Play() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.play()
}

// Pause stops the camera and clears the render state.
// The cycle in flight is allowed to publish before the camera is torn down.
func (l *Lifecycle) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pause()
}

// Toggle switches between playing and paused.
func (l *Lifecycle) Toggle() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Running {
		return l.pause()
	}
	return l.play()
}

// SwitchCamera stops the active camera, selects the camera with the given index and starts it.
func (l *Lifecycle) SwitchCamera(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.reacquire(func(cfg *CameraConfig) { cfg.CameraIndex = index }); err != nil {
		return err
	}
	return l.play()
}

// ToggleCamera alternates between the rear (0) and the front (1) camera.
func (l *Lifecycle) ToggleCamera() error {
	l.mu.Lock()
	idx := 1
	if l.cfg.CameraIndex == 1 {
		idx = 0
	}
	l.mu.Unlock()

	return l.SwitchCamera(idx)
}

// SetResolution changes the requested capture resolution. A running camera is
// stopped, re-acquired with the new resolution and started again.
func (l *Lifecycle) SetResolution(res Resolution) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	wasRunning := l.state == Running
	if err := l.reacquire(func(cfg *CameraConfig) { cfg.Resolution = res }); err != nil {
		return err
	}
	if wasRunning {
		return l.play()
	}
	return nil
}

// reacquire goes through the Stopped state, applies the configuration
// change and releases the old camera handle. Caller must hold the lock.
func (l *Lifecycle) reacquire(update func(cfg *CameraConfig)) error {
	if l.state == Running {
		l.transition(Switching)
		if err := l.pause(); err != nil {
			return err
		}
	}
	update(&l.cfg)
	l.release()

	return nil
}

// play must be called with the lock held.
func (l *Lifecycle) play() error {
	if l.state == Running {
		return nil
	}
	l.transition(Starting)

	if l.cam == nil {
		if l.factory == nil {
			l.transition(Stopped)
			return errors.Wrap(ErrCameraAcquisitionFailed, "no camera factory")
		}
		index := l.cfg.CameraIndex
		cam, err := l.factory(l.cfg, func(frame RawFrame) {
			// Drops and failures are accounted and logged by the processor.
			_ = l.proc.HandleFrame(frame, index)
		})
		if err != nil {
			l.transition(Stopped)
			return errors.Wrapf(ErrCameraAcquisitionFailed, "camera #%d: %v", index, err)
		}
		l.cam = cam
		if fr, ok := cam.(FailureReporter); ok {
			l.unwatch = make(chan struct{})
			go l.watch(cam, fr.Failed(), l.unwatch)
		}
	}

	l.proc.Open()
	if err := l.cam.Start(); err != nil {
		l.proc.Close()
		l.release()
		l.transition(Stopped)
		return errors.Wrapf(ErrCameraAcquisitionFailed, "camera #%d: %v", l.cfg.CameraIndex, err)
	}
	l.cfg.Playing = true
	l.transition(Running)

	return nil
}

// pause must be called with the lock held.
func (l *Lifecycle) pause() error {
	if l.state != Running && l.state != Switching {
		return nil
	}
	l.proc.Close()
	// Let the cycle in flight publish before tearing down the camera.
	l.proc.Drain()

	var err error
	if l.cam != nil {
		if err = l.cam.Stop(); err != nil {
			err = errors.Wrap(err, "could not stop the camera")
			l.logger.Error().Err(err).Int("camera", l.cfg.CameraIndex).Msg("camera stop failed")
			// The handle state is unknown, the next play acquires a new one.
			l.release()
		}
	}
	if l.publisher != nil {
		// Clear the texture and the overlays, so no frozen frame stays on screen.
		l.publisher.Publish(RenderState{})
	}
	l.cfg.Playing = false
	l.transition(Stopped)

	return err
}

// release drops the camera handle. Caller must hold the lock.
func (l *Lifecycle) release() {
	if l.cam == nil {
		return
	}
	if l.unwatch != nil {
		close(l.unwatch)
		l.unwatch = nil
	}
	if c, ok := l.cam.(io.Closer); ok {
		if err := c.Close(); err != nil {
			l.logger.Warn().Err(err).Msg("could not release the camera")
		}
	}
	l.cam = nil
}

// watch stops the lifecycle when the camera reports a failure,
// until the handle is released.
func (l *Lifecycle) watch(cam Camera, failed <-chan error, unwatch <-chan struct{}) {
	var cause error
	select {
	case <-unwatch:
		return
	case cause = <-failed:
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cam != cam {
		return
	}
	err := errors.Wrapf(ErrCameraAcquisitionFailed, "camera #%d: %v", l.cfg.CameraIndex, cause)
	l.logger.Error().Err(err).Msg("camera stopped delivering frames")

	_ = l.pause()
	l.release()
}

// transition must be called with the lock held.
func (l *Lifecycle) transition(to State) {
	from := l.state
	if from == to {
		return
	}
	l.state = to
	l.logger.Debug().Stringer("from", from).Stringer("to", to).Int("camera", l.cfg.CameraIndex).Msg("camera state changed")

	for _, o := range l.observers {
		o.OnStateChange(from, to)
	}
}
