package facecam

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	rig     *cameraRig
	cfg     CameraConfig
	onFrame FrameHandler
	running bool
	closed  bool
	failed  chan error
}

func (c *fakeCamera) Failed() <-chan error { return c.failed }

func (c *fakeCamera) isRunning() bool {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()

	return c.running
}

func (c *fakeCamera) isClosed() bool {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()

	return c.closed
}

func (c *fakeCamera) Start() error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()

	if c.rig.startErr != nil {
		return c.rig.startErr
	}
	if c.running {
		return errors.New("started twice")
	}
	c.running = true
	c.rig.active++
	if c.rig.active > c.rig.peak {
		c.rig.peak = c.rig.active
	}
	return nil
}

func (c *fakeCamera) Stop() error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()

	if c.rig.stopErr != nil {
		return c.rig.stopErr
	}
	if c.running {
		c.running = false
		c.rig.active--
	}
	return nil
}

func (c *fakeCamera) Close() error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()

	c.closed = true
	return nil
}

// cameraRig is a camera factory recording every acquired handle.
type cameraRig struct {
	mu         sync.Mutex
	cams       []*fakeCamera
	active     int
	peak       int
	acquireErr error
	startErr   error
	stopErr    error
}

func (r *cameraRig) factory(cfg CameraConfig, onFrame FrameHandler) (Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.acquireErr != nil {
		return nil, r.acquireErr
	}
	cam := &fakeCamera{rig: r, cfg: cfg, onFrame: onFrame, failed: make(chan error, 1)}
	r.cams = append(r.cams, cam)

	return cam, nil
}

func (r *cameraRig) last() *fakeCamera {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cams[len(r.cams)-1]
}

type transition struct{ from, to State }

func newTestLifecycle(cfg CameraConfig) (*Lifecycle, *cameraRig, *Mailbox, *[]transition) {
	return newTestLifecycleWith(staticDetector(FaceRect{X: 0, Y: 0, Width: 2, Height: 2}), cfg)
}

func newTestLifecycleWith(det Detector, cfg CameraConfig) (*Lifecycle, *cameraRig, *Mailbox, *[]transition) {
	rig := &cameraRig{}
	m := NewMailbox()
	proc := NewProcessor(det, m, nil)
	life := NewLifecycle(rig.factory, proc, m, cfg)

	var seen []transition
	life.Subscribe(ObserverFunc(func(from, to State) {
		seen = append(seen, transition{from, to})
	}))
	return life, rig, m, &seen
}

func TestLifecycle_PlaySwitchPause(t *testing.T) {
	life, rig, _, seen := newTestLifecycle(CameraConfig{CameraIndex: 0, Resolution: DefaultResolution})

	require.NoError(t, life.Play())
	require.NoError(t, life.SwitchCamera(1))
	require.NoError(t, life.Pause())

	assert.Equal(t, Stopped, life.State())
	cfg := life.Config()
	assert.Equal(t, 1, cfg.CameraIndex)
	assert.False(t, cfg.Playing)

	assert.Equal(t, []transition{
		{Stopped, Starting},
		{Starting, Running},
		{Running, Switching},
		{Switching, Stopped},
		{Stopped, Starting},
		{Starting, Running},
		{Running, Stopped},
	}, *seen)

	require.Len(t, rig.cams, 2)
	assert.Equal(t, 0, rig.cams[0].cfg.CameraIndex)
	assert.Equal(t, 1, rig.cams[1].cfg.CameraIndex)
	assert.True(t, rig.cams[0].closed)
	assert.Equal(t, 1, rig.peak)
	assert.Equal(t, 0, rig.active)
}

func TestLifecycle_NeverTwoRunningCameras(t *testing.T) {
	life, rig, _, _ := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})

	require.NoError(t, life.Play())
	require.NoError(t, life.Play())
	for i := 0; i < 5; i++ {
		require.NoError(t, life.ToggleCamera())
		require.NoError(t, life.Toggle())
		require.NoError(t, life.Toggle())
	}
	assert.Equal(t, Running, life.State())
	assert.Equal(t, 1, life.Config().CameraIndex)
	assert.Equal(t, 1, rig.peak)
	assert.Equal(t, 1, rig.active)
}

func TestLifecycle_PlayIsIdempotent(t *testing.T) {
	life, rig, _, seen := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})

	require.NoError(t, life.Play())
	require.NoError(t, life.Play())

	assert.Len(t, rig.cams, 1)
	assert.Len(t, *seen, 2)
	assert.True(t, life.Config().Playing)
}

func TestLifecycle_PauseWhenStopped(t *testing.T) {
	life, _, m, seen := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})

	require.NoError(t, life.Pause())
	assert.Equal(t, Stopped, life.State())
	assert.Empty(t, *seen)

	_, ok := m.Take()
	assert.False(t, ok)
}

func TestLifecycle_AcquisitionFailure(t *testing.T) {
	life, rig, _, seen := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})
	rig.acquireErr = errors.New("no such device")

	err := life.Play()
	assert.ErrorIs(t, err, ErrCameraAcquisitionFailed)
	assert.Equal(t, Stopped, life.State())
	assert.False(t, life.Config().Playing)
	assert.Equal(t, []transition{{Stopped, Starting}, {Starting, Stopped}}, *seen)

	// The camera can be acquired on a later attempt.
	rig.acquireErr = nil
	require.NoError(t, life.Play())
	assert.Equal(t, Running, life.State())
}

func TestLifecycle_StartFailure(t *testing.T) {
	life, rig, _, _ := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})
	rig.startErr = errors.New("device busy")

	err := life.Play()
	assert.ErrorIs(t, err, ErrCameraAcquisitionFailed)
	assert.Equal(t, Stopped, life.State())
	require.Len(t, rig.cams, 1)
	assert.True(t, rig.cams[0].closed)
	assert.Equal(t, 0, rig.active)
}

func TestLifecycle_PauseClearsRenderState(t *testing.T) {
	life, rig, m, _ := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})
	require.NoError(t, life.Play())

	cam := rig.last()
	cam.onFrame(newRawFrame(8, 8))

	state, ok := m.Take()
	require.True(t, ok)
	assert.NotNil(t, state.Texture)
	assert.Equal(t, 1, state.Faces)

	require.NoError(t, life.Pause())
	state, ok = m.Take()
	require.True(t, ok)
	assert.Nil(t, state.Texture)
	assert.Empty(t, state.Overlays)
	assert.Equal(t, 0, state.Faces)

	// A late frame from the stopped camera is ignored.
	cam.onFrame(newRawFrame(8, 8))
	_, ok = m.Take()
	assert.False(t, ok)
}

func TestLifecycle_SetResolution(t *testing.T) {
	life, rig, _, _ := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})

	res := Resolution{Width: 320, Height: 240}
	require.NoError(t, life.SetResolution(res))
	assert.Equal(t, Stopped, life.State())
	assert.Empty(t, rig.cams)
	assert.Equal(t, res, life.Config().Resolution)

	require.NoError(t, life.Play())
	assert.Equal(t, res, rig.last().cfg.Resolution)

	hd := Resolution{Width: 1280, Height: 720}
	require.NoError(t, life.SetResolution(hd))
	assert.Equal(t, Running, life.State())
	require.Len(t, rig.cams, 2)
	assert.Equal(t, hd, rig.cams[1].cfg.Resolution)
	assert.Equal(t, 1, rig.peak)
}

func TestLifecycle_SwitchWhileStopped(t *testing.T) {
	life, rig, _, _ := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})

	require.NoError(t, life.SwitchCamera(1))
	assert.Equal(t, Running, life.State())
	require.Len(t, rig.cams, 1)
	assert.Equal(t, 1, rig.cams[0].cfg.CameraIndex)
}

func TestLifecycle_SwitchWaitsForCycleInFlight(t *testing.T) {
	det := newBlockingDetector(FaceRect{X: 0, Y: 0, Width: 2, Height: 2})
	life, rig, m, _ := newTestLifecycleWith(det, CameraConfig{Resolution: DefaultResolution})
	require.NoError(t, life.Play())
	cam := rig.last()

	go cam.onFrame(newRawFrame(8, 8))
	<-det.started

	switched := make(chan error, 1)
	go func() { switched <- life.SwitchCamera(1) }()

	select {
	case <-switched:
		t.Fatal("camera switched while a cycle was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	assert.True(t, cam.isRunning())

	close(det.release)
	require.NoError(t, <-switched)

	assert.False(t, cam.isRunning())
	assert.True(t, cam.isClosed())
	assert.Equal(t, Running, life.State())
	assert.Equal(t, 1, life.Config().CameraIndex)
	assert.Equal(t, 1, rig.peak)

	// The cycle published before the clear, which is the last state left.
	state, ok := m.Take()
	require.True(t, ok)
	assert.Equal(t, uint64(2), state.Seq)
	assert.Nil(t, state.Texture)
	assert.Equal(t, 0, state.Faces)
	assert.Equal(t, uint64(1), m.Overwrites())
}

func TestLifecycle_StopFailureReleasesCamera(t *testing.T) {
	life, rig, _, _ := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})
	require.NoError(t, life.Play())
	first := rig.last()

	rig.mu.Lock()
	rig.stopErr = errors.New("device wedged")
	rig.mu.Unlock()

	assert.Error(t, life.Pause())
	assert.Equal(t, Stopped, life.State())
	assert.True(t, first.isClosed())

	rig.mu.Lock()
	rig.stopErr = nil
	rig.active = 0
	rig.mu.Unlock()

	require.NoError(t, life.Play())
	assert.Equal(t, Running, life.State())
	require.Len(t, rig.cams, 2)
	assert.NotSame(t, first, rig.last())
}

func TestLifecycle_CameraFailureStops(t *testing.T) {
	life, rig, m, _ := newTestLifecycle(CameraConfig{Resolution: DefaultResolution})
	require.NoError(t, life.Play())
	cam := rig.last()

	cam.failed <- errors.New("unplugged")

	assert.Eventually(t, func() bool { return life.State() == Stopped }, time.Second, time.Millisecond)
	assert.Eventually(t, cam.isClosed, time.Second, time.Millisecond)
	assert.False(t, life.Config().Playing)

	state, ok := m.Take()
	require.True(t, ok)
	assert.Nil(t, state.Texture)

	// A new handle is acquired on the next play.
	require.NoError(t, life.Play())
	require.Len(t, rig.cams, 2)
	assert.Equal(t, 1, rig.peak)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "switching", Switching.String())
	assert.Equal(t, "unknown", State(9).String())
}
