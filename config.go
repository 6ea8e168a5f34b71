package facecam

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SourceWebcam selects the device camera as the frame source.
const SourceWebcam = "webcam"

// Config holds the options of a capture session.
type Config struct {
	Platform    Platform    `yaml:"platform"`
	CameraIndex int         `yaml:"camera"`
	Resolution  Resolution  `yaml:"resolution"`
	Source      string      `yaml:"source"`
	FPS         int         `yaml:"fps"`
	Cascade     string      `yaml:"cascade"`
	Upsample    int         `yaml:"upsample"`
	Pigo        PigoParams  `yaml:"pigo"`
	Orientation Orientation `yaml:"orientation"`
	Window      struct {
		Title  string `yaml:"title"`
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
	} `yaml:"window"`
	Headless bool   `yaml:"headless"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no config file is provided.
func DefaultConfig() Config {
	cfg := Config{
		Platform:    PlatformFromGOOS(runtime.GOOS),
		CameraIndex: 0,
		Resolution:  DefaultResolution,
		Source:      SourceWebcam,
		FPS:         15,
		Upsample:    0,
		Pigo:        DefaultPigoParams(),
		Orientation: DefaultOrientation.clone(),
		LogLevel:    "info",
	}
	cfg.Window.Title = "Face detection"
	cfg.Window.Width = 640
	cfg.Window.Height = 520

	return cfg
}

// LoadConfig reads a YAML config file on top of the default configuration.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read the config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "could not parse the config file %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration consistency.
func (c Config) Validate() error {
	switch c.Platform {
	case PlatformMobile, PlatformOther:
	default:
		return errors.Errorf("unknown platform %q", c.Platform)
	}
	if c.CameraIndex < 0 {
		return errors.Errorf("invalid camera index %d", c.CameraIndex)
	}
	if c.Source == "" {
		return errors.New("no frame source provided")
	}
	if c.Source != SourceWebcam && c.FPS <= 0 {
		return errors.Errorf("invalid replay frame rate %d", c.FPS)
	}
	if c.Cascade == "" {
		return errors.New("please specify a face classifier cascade file")
	}
	if c.Upsample < 0 {
		return errors.Errorf("invalid upsample factor %d", c.Upsample)
	}
	for idx, t := range c.Orientation {
		switch t.Rotation {
		case Rotate0, Rotate90, Rotate180, Rotate270:
		default:
			return errors.Errorf("invalid rotation %d for camera #%d", t.Rotation, idx)
		}
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}

// CameraConfig returns the initial camera configuration of the session.
func (c Config) CameraConfig() CameraConfig {
	return CameraConfig{
		CameraIndex: c.CameraIndex,
		Resolution:  c.Resolution,
	}
}
