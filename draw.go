package facecam

import (
	"image"
	"image/color"
	"math"

	"gioui.org/op/clip"
	"gioui.org/op/paint"
)

// DrawOverlays shades and outlines the detected faces. The overlays are expressed in display
// space (origin bottom-left), while Gio has its origin top-left, so they are flipped
// back using the height of the drawing area.
func (g *Gui) DrawOverlays(gtx C, height float32) {
	col := g.setColor(g.cfg.color.overlay)
	fill := g.setColor(g.cfg.color.fill)

	for _, o := range g.proc.overlays {
		r := overlayBounds(o, float64(height))
		paint.FillShape(gtx.Ops, fill, clip.Rect(r).Op())
		g.drawRect(gtx, r, col)
	}
}

// drawRect strokes the rectangle outline with the configured thickness.
func (g *Gui) drawRect(gtx C, r image.Rectangle, col color.NRGBA) {
	paint.FillShape(gtx.Ops, col,
		clip.Stroke{
			Path:  clip.Rect(r).Path(),
			Width: g.cfg.thickness,
		}.Op(),
	)
}

// overlayBounds converts a display space overlay into a top-left based rectangle.
func overlayBounds(o OverlayRect, height float64) image.Rectangle {
	top := height - (o.Y + o.Height)
	return image.Rect(
		int(math.Round(o.X)),
		int(math.Round(top)),
		int(math.Round(o.X+o.Width)),
		int(math.Round(top+o.Height)),
	)
}

// setColor converts any color into the color.NRGBA type used by Gio.
func (g *Gui) setColor(c color.Color) color.NRGBA {
	rc, gc, bc, ac := c.RGBA()
	return color.NRGBA{
		R: uint8(rc >> 8),
		G: uint8(gc >> 8),
		B: uint8(bc >> 8),
		A: uint8(ac >> 8),
	}
}
