package facecam

import (
	"image"
	"image/color"
	"sync"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/rs/zerolog"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

var (
	defaultBkgColor     = color.NRGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xff}
	defaultTextColor    = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	defaultOverlayColor = color.NRGBA{R: 0x00, G: 0xe6, B: 0x76, A: 0xff}
	defaultFillColor    = color.NRGBA{R: 0x00, G: 0x00, B: 0xff, A: 0x33}
)

// Controls are the user actions available from the GUI window.
type Controls interface {
	Toggle() error
	ToggleCamera() error
}

// Gui is the Gio window showing the camera feed with the detected faces outlined.
// It drains the render mailbox on its own goroutine, which is the only one touching the drawing state.
type Gui struct {
	cfg struct {
		title  string
		width  int
		height int
		color  struct {
			background color.Color
			text       color.Color
			overlay    color.Color
			fill       color.Color
		}
		thickness float32
	}
	proc struct {
		texture  image.Image
		imgOp    paint.ImageOp
		overlays []OverlayRect
		status   string
	}
	mu      sync.RWMutex
	size    image.Point
	focused bool

	mailbox  *Mailbox
	controls Controls
	theme    *material.Theme
	logger   zerolog.Logger
	ops      op.Ops
}

var _ Surface = (*Gui)(nil)

// NewGUI initializes the Gio interface.
func NewGUI(title string, w, h int, mailbox *Mailbox, controls Controls, logger zerolog.Logger) *Gui {
	gui := &Gui{
		mailbox:  mailbox,
		controls: controls,
		logger:   logger,
		theme:    material.NewTheme(gofont.Collection()),
	}
	gui.cfg.title = title
	gui.cfg.width, gui.cfg.height = w, h
	gui.cfg.color.background = defaultBkgColor
	gui.cfg.color.text = defaultTextColor
	gui.cfg.color.overlay = defaultOverlayColor
	gui.cfg.color.fill = defaultFillColor
	gui.cfg.thickness = 3
	gui.proc.status = StatusText(0)

	return gui
}

// SetControls sets the target of the keyboard actions.
func (g *Gui) SetControls(controls Controls) {
	g.controls = controls
}

// SetTexture replaces the displayed frame. A nil buffer clears it.
func (g *Gui) SetTexture(pix []uint8, width, height int, format PixelFormat) {
	if pix == nil || format != FormatRGBA {
		g.proc.texture = nil
		return
	}
	img := &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	g.proc.texture = img
	g.proc.imgOp = paint.NewImageOp(img)
}

// SetOverlays replaces the face rectangles drawn over the frame.
func (g *Gui) SetOverlays(overlays []OverlayRect) {
	g.proc.overlays = overlays
}

// SetStatus replaces the status line.
func (g *Gui) SetStatus(status string) {
	g.proc.status = status
}

// Size returns the size in pixels of the area where the frames are drawn.
// This is the only method safe to call from other goroutines.
func (g *Gui) Size() (float64, float64) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return float64(g.size.X), float64(g.size.Y)
}

// Run is the core method of the Gio GUI application. It updates the window
// with the render states received through the mailbox and returns when the window is closed.
func (g *Gui) Run() error {
	w := app.NewWindow(app.Title(g.cfg.title), app.Size(
		unit.Dp(float32(g.cfg.width)),
		unit.Dp(float32(g.cfg.height)),
	))

	for {
		select {
		case e := <-w.Events():
			switch e := e.(type) {
			case system.FrameEvent:
				g.draw(w, e)
			case system.DestroyEvent:
				return e.Err
			}
		case <-g.mailbox.Ready():
			if Drain(g.mailbox, g) {
				w.Invalidate()
			}
		}
	}
}

// draw lays out the status line and the camera frame with the overlays on top.
func (g *Gui) draw(win *app.Window, e system.FrameEvent) {
	gtx := layout.NewContext(&g.ops, e)
	g.handleKeys(win, gtx)

	paint.Fill(gtx.Ops, g.setColor(g.cfg.color.background))

	layout.Flex{
		Axis: layout.Vertical,
	}.Layout(gtx,
		layout.Rigid(func(gtx C) D {
			return layout.UniformInset(unit.Dp(6)).Layout(gtx, func(gtx C) D {
				lbl := material.Label(g.theme, unit.Sp(17), g.proc.status)
				lbl.Color = g.setColor(g.cfg.color.text)
				return lbl.Layout(gtx)
			})
		}),
		layout.Flexed(1, func(gtx C) D {
			size := gtx.Constraints.Max
			g.mu.Lock()
			g.size = size
			g.mu.Unlock()

			if g.proc.texture != nil {
				widget.Image{
					Src: g.proc.imgOp,
					Fit: widget.Fill,
				}.Layout(gtx)
			}
			g.DrawOverlays(gtx, float32(size.Y))

			return layout.Dimensions{Size: size}
		}),
	)
	e.Frame(gtx.Ops)
}

// handleKeys toggles the camera with P (play/pause) and C (front/rear) and closes the window on ESC.
func (g *Gui) handleKeys(win *app.Window, gtx C) {
	for _, ev := range gtx.Events(g) {
		e, ok := ev.(key.Event)
		if !ok || e.State != key.Press {
			continue
		}
		switch e.Name {
		case key.NameEscape:
			win.Perform(system.ActionClose)
		case "P":
			if g.controls != nil {
				go g.control("toggle play", g.controls.Toggle)
			}
		case "C":
			if g.controls != nil {
				go g.control("toggle camera", g.controls.ToggleCamera)
			}
		}
	}
	if !g.focused {
		key.FocusOp{Tag: g}.Add(gtx.Ops)
		g.focused = true
	}
	key.InputOp{Tag: g, Keys: key.Set(key.NameEscape + "|P|C")}.Add(gtx.Ops)
}

// control runs a lifecycle action outside of the render loop, since it
// waits for the frame in flight to be published.
func (g *Gui) control(action string, fn func() error) {
	if err := fn(); err != nil {
		g.logger.Error().Err(err).Str("action", action).Msg("camera control failed")
	}
}
