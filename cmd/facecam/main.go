package main

import (
	"fmt"
	"os"

	"github.com/esimov/facecam"
	"github.com/esimov/facecam/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌─┐┌─┐┌┬┐
├┤ ├─┤│  ├┤ │  ├─┤│││
└  ┴ ┴└─┘└─┘└─┘┴ ┴┴ ┴

Live camera face detection.
    Version: %s

`

// Version indicates the current build version.
var Version = "dev"

// options holds the command line flags overriding the config file.
type options struct {
	configPath string
	platform   string
	camera     int
	width      int
	height     int
	source     string
	fps        int
	cascade    string
	upsample   int
	headless   bool
	logLevel   string
	angle      float64
	minSize    int
	quality    float32
}

func main() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "facecam",
		Short:         "Detect and outline the faces in a live camera feed",
		Long:          fmt.Sprintf(HelpBanner, Version),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			sess, err := newSession(cfg, logger)
			if err != nil {
				return err
			}
			if cfg.Headless {
				return sess.runHeadless()
			}
			sess.runGUI()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.platform, "platform", "", "Device platform: mobile or other (default detected from the OS)")
	flags.IntVar(&opts.camera, "camera", 0, "Camera index")
	flags.IntVar(&opts.width, "width", -1, "Requested capture width")
	flags.IntVar(&opts.height, "height", -1, "Requested capture height")
	flags.StringVarP(&opts.source, "source", "s", facecam.SourceWebcam, "Frame source: webcam, an image file, a directory or an image URL")
	flags.IntVar(&opts.fps, "fps", 15, "Frame rate of the replayed source")
	flags.StringVarP(&opts.cascade, "cascade", "c", "", "Face classifier cascade file")
	flags.IntVar(&opts.upsample, "upsample", 0, "Number of times the frame is doubled before detection")
	flags.BoolVar(&opts.headless, "headless", false, "Run without a window")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	flags.Float64Var(&opts.angle, "angle", 0, "Plane rotated faces angle")
	flags.IntVar(&opts.minSize, "min-size", 60, "Minimum face size in pixels")
	flags.Float32Var(&opts.quality, "quality", 5, "Minimum detection quality")

	return cmd
}

// resolveConfig loads the config file, if any, and overrides it with the flags set explicitly.
func resolveConfig(cmd *cobra.Command, opts *options) (facecam.Config, error) {
	cfg := facecam.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = facecam.LoadConfig(opts.configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("platform") {
		cfg.Platform = facecam.Platform(opts.platform)
	}
	if flags.Changed("camera") {
		cfg.CameraIndex = opts.camera
	}
	if flags.Changed("width") || flags.Changed("height") {
		if opts.width <= 0 || opts.height <= 0 {
			return cfg, errors.New("both --width and --height must be positive")
		}
		cfg.Resolution = facecam.Resolution{Width: opts.width, Height: opts.height}
	}
	if flags.Changed("source") {
		cfg.Source = opts.source
	}
	if flags.Changed("fps") {
		cfg.FPS = opts.fps
	}
	if flags.Changed("cascade") {
		cfg.Cascade = opts.cascade
	}
	if flags.Changed("upsample") {
		cfg.Upsample = opts.upsample
	}
	if flags.Changed("headless") {
		cfg.Headless = opts.headless
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("angle") {
		cfg.Pigo.Angle = opts.angle
	}
	if flags.Changed("min-size") {
		cfg.Pigo.MinSize = opts.minSize
	}
	if flags.Changed("quality") {
		cfg.Pigo.Quality = opts.quality
	}
	return cfg, cfg.Validate()
}

// newLogger returns a console logger writing to stderr, colored only on terminals.
func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "invalid log level %q", level)
	}
	out := zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !term.IsTerminal(int(os.Stderr.Fd())),
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
