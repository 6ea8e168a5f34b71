package facecam

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFaces_PreservesOrder(t *testing.T) {
	want := []FaceRect{
		{X: 40, Y: 10, Width: 20, Height: 20},
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 70, Y: 30, Width: 30, Height: 30},
	}
	det := DetectorFunc(func(frame LumaFrame, upsample int) ([]FaceRect, error) {
		return want, nil
	})

	faces, err := DetectFaces(det, newLumaFrame(100, 60), 0)
	require.NoError(t, err)
	assert.Equal(t, want, faces)
}

func TestDetectFaces_PassesUpsample(t *testing.T) {
	var got int
	det := DetectorFunc(func(frame LumaFrame, upsample int) ([]FaceRect, error) {
		got = upsample
		return nil, nil
	})

	faces, err := DetectFaces(det, newLumaFrame(10, 10), 2)
	require.NoError(t, err)
	assert.Empty(t, faces)
	assert.Equal(t, 2, got)
}

func TestDetectFaces_Failures(t *testing.T) {
	failing := DetectorFunc(func(frame LumaFrame, upsample int) ([]FaceRect, error) {
		return nil, errors.New("classifier exploded")
	})
	outside := DetectorFunc(func(frame LumaFrame, upsample int) ([]FaceRect, error) {
		return []FaceRect{{X: 90, Y: 0, Width: 20, Height: 20}}, nil
	})
	negative := DetectorFunc(func(frame LumaFrame, upsample int) ([]FaceRect, error) {
		return []FaceRect{{X: -1, Y: 0, Width: 20, Height: 20}}, nil
	})

	tests := map[string]struct {
		det   Detector
		frame LumaFrame
	}{
		"detector error":   {failing, newLumaFrame(100, 100)},
		"out of bounds":    {outside, newLumaFrame(100, 100)},
		"negative origin":  {negative, newLumaFrame(100, 100)},
		"no detector":      {nil, newLumaFrame(100, 100)},
		"inconsistent pix": {outside, LumaFrame{Pix: make([]uint8, 3), Width: 2, Height: 2}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			faces, err := DetectFaces(tt.det, tt.frame, 0)
			assert.ErrorIs(t, err, ErrDetectionFailed)
			assert.Nil(t, faces)
		})
	}
}

func TestDetectFaces_KeepsCause(t *testing.T) {
	cause := errors.New("cascade not loaded")
	det := DetectorFunc(func(frame LumaFrame, upsample int) ([]FaceRect, error) {
		return nil, cause
	})

	_, err := DetectFaces(det, newLumaFrame(10, 10), 0)
	assert.ErrorIs(t, err, ErrDetectionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "cascade not loaded")
}

func TestFaceRect_Within(t *testing.T) {
	assert.True(t, FaceRect{X: 0, Y: 0, Width: 10, Height: 10}.within(10, 10))
	assert.True(t, FaceRect{X: 5, Y: 5, Width: 0, Height: 0}.within(10, 10))
	assert.False(t, FaceRect{X: 1, Y: 0, Width: 10, Height: 10}.within(10, 10))
	assert.False(t, FaceRect{X: 0, Y: 0, Width: -1, Height: 10}.within(10, 10))
}
