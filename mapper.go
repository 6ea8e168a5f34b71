package facecam

// MapRect transforms an image space face rectangle into display space overlay geometry.
// Image space has its origin top-left with y growing downward, while
// the display surface has its origin bottom-left with y growing upward,
// hence the vertical flip. No clamping is done: an overlay may lay partially off-surface.
func MapRect(r FaceRect, imgW, imgH int, surfW, surfH float64) OverlayRect {
	scaleX := surfW / float64(imgW)
	scaleY := surfH / float64(imgH)

	return OverlayRect{
		X:      float64(r.X) * scaleX,
		Y:      float64(imgH-(r.Y+r.Height)) * scaleY,
		Width:  float64(r.Width) * scaleX,
		Height: float64(r.Height) * scaleY,
	}
}

// MapRects maps each face rectangle independently, keeping their order.
func MapRects(faces []FaceRect, imgW, imgH int, surfW, surfH float64) []OverlayRect {
	overlays := make([]OverlayRect, len(faces))
	for i, r := range faces {
		overlays[i] = MapRect(r, imgW, imgH, surfW, surfH)
	}
	return overlays
}
