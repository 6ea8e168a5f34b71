package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gioui.org/app"
	"github.com/esimov/facecam"
	"github.com/esimov/facecam/camera"
	"github.com/esimov/facecam/camera/webcam"
	"github.com/esimov/facecam/utils"
	"github.com/rs/zerolog"
)

// session wires the capture, processing and rendering components together.
type session struct {
	cfg     facecam.Config
	logger  zerolog.Logger
	mailbox *facecam.Mailbox
	proc    *facecam.Processor
	life    *facecam.Lifecycle
	gui     *facecam.Gui
	canvas  *facecam.Canvas
	started time.Time
}

func newSession(cfg facecam.Config, logger zerolog.Logger) (*session, error) {
	det, err := facecam.LoadPigoDetector(cfg.Cascade, cfg.Pigo)
	if err != nil {
		return nil, err
	}
	factory, err := cameraFactory(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		logger:  logger,
		mailbox: facecam.NewMailbox(),
		started: time.Now(),
	}

	var sizer facecam.Sizer
	if cfg.Headless {
		s.canvas = facecam.NewCanvas(float64(cfg.Window.Width), float64(cfg.Window.Height))
		sizer = s.canvas
	} else {
		s.gui = facecam.NewGUI(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height, s.mailbox, nil, logger)
		sizer = s.gui
	}

	s.proc = facecam.NewProcessor(det, s.mailbox, sizer,
		facecam.WithPlatform(cfg.Platform),
		facecam.WithOrientation(cfg.Orientation),
		facecam.WithUpsample(cfg.Upsample),
		facecam.WithLogger(logger.With().Str("component", "processor").Logger()),
	)
	s.life = facecam.NewLifecycle(factory, s.proc, s.mailbox, cfg.CameraConfig())
	s.life.SetLogger(logger.With().Str("component", "lifecycle").Logger())
	s.life.Subscribe(facecam.ObserverFunc(func(from, to facecam.State) {
		if to == facecam.Running || to == facecam.Stopped {
			logger.Info().Stringer("state", to).Msg("camera " + to.String())
		}
	}))
	if s.gui != nil {
		s.gui.SetControls(s.life)
	}
	return s, nil
}

// cameraFactory selects the device camera or the replay of a set of images.
func cameraFactory(cfg facecam.Config, logger zerolog.Logger) (facecam.CameraFactory, error) {
	if cfg.Source == facecam.SourceWebcam {
		return webcam.Factory(logger), nil
	}
	return camera.ReplayFactory(cfg.Source, cfg.FPS)
}

// start plays the camera while showing the progress indicator.
func (s *session) start() error {
	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ FACECAM", utils.StatusMessage),
		utils.DecorateText("is starting the camera...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, time.Millisecond*100, true)
	spinner.Start()

	err := s.life.Play()
	spinner.Stop()
	if err != nil {
		return err
	}
	s.started = time.Now()

	return nil
}

// shutdown stops the camera and reports the session counters.
func (s *session) shutdown() {
	if err := s.life.Pause(); err != nil {
		s.logger.Error().Err(err).Msg("could not stop the camera")
	}
	stats := s.proc.Stats()
	s.logger.Info().
		Uint64("processed", stats.Processed).
		Uint64("dropped", stats.Dropped).
		Uint64("failed", stats.Failed).
		Uint64("published", stats.Published).
		Uint64("overwritten", s.mailbox.Overwrites()).
		Str("elapsed", utils.FormatTime(time.Since(s.started))).
		Msg("session ended")
}

// runGUI opens the window and never returns: Gio needs the main goroutine.
func (s *session) runGUI() {
	go func() {
		if err := s.start(); err != nil {
			// The window stays open so the camera can be retried with P.
			s.logger.Error().Err(err).Msg("could not start the camera")
		}
		err := s.gui.Run()
		s.shutdown()
		if err != nil {
			s.logger.Error().Err(err).Msg("window closed")
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
}

// runHeadless drains the render states into an in-memory canvas until interrupted.
func (s *session) runHeadless() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.start(); err != nil {
		return err
	}
	defer s.shutdown()

	status := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.mailbox.Ready():
			if !facecam.Drain(s.mailbox, s.canvas) {
				continue
			}
			if st := s.canvas.Status(); st != status {
				status = st
				s.logger.Info().Int("overlays", len(s.canvas.Overlays())).Msg(st)
			}
		}
	}
}
