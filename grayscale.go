package facecam

import (
	"math"

	"github.com/esimov/facecam/utils"
)

// Luma weights of the RGB channels.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Luma derives the single channel intensity array consumed by the detector.
func Luma(src OrientedFrame) LumaFrame {
	gray := make([]uint8, src.Width*src.Height)

	for i, j := 0, 0; j < len(gray); i, j = i+3, j+1 {
		gray[j] = luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
	}

	return LumaFrame{
		Pix:    gray,
		Width:  src.Width,
		Height: src.Height,
	}
}

// luma returns round(0.299*R + 0.587*G + 0.114*B) clamped to the [0, 255] range.
func luma(r, g, b uint8) uint8 {
	lum := math.Round(lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(b))
	return uint8(utils.Clamp(lum, 0, 255))
}
