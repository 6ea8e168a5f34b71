package facecam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuma_Weights(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint8
	}{
		{0, 0, 0, 0},
		{255, 0, 0, 76},
		{0, 255, 0, 150},
		{0, 0, 255, 29},
		{177, 177, 177, 177},
		{255, 255, 255, 255},
		{10, 20, 30, 18},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, luma(tt.r, tt.g, tt.b), "luma(%d, %d, %d)", tt.r, tt.g, tt.b)
	}
}

func TestLuma_Frame(t *testing.T) {
	src := OrientedFrame{
		Pix: []uint8{
			255, 0, 0, 0, 255, 0,
			0, 0, 255, 255, 255, 255,
			0, 0, 0, 177, 177, 177,
		},
		Width:  2,
		Height: 3,
	}
	gray := Luma(src)

	assert.Equal(t, 2, gray.Width)
	assert.Equal(t, 3, gray.Height)
	assert.Equal(t, []uint8{76, 150, 29, 255, 0, 177}, gray.Pix)

	// Same input, same output.
	assert.Equal(t, gray, Luma(src))
}
