package gstview

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/thesyncim/gstview/internal/logging"
)

// Config is the file-level configuration of a player.
type Config struct {
	MaxFPS      int        `yaml:"max_fps"`      // Render ticks per second (1..1000)
	Sink        SinkConfig `yaml:"sink"`         // Video sink properties
	LibraryPath string     `yaml:"library_path"` // Directory searched first for native libraries
	Backend     string     `yaml:"backend"`      // Pipeline backend: "pattern" or "gst"
	LogLevel    string     `yaml:"log_level"`    // Package log level, e.g. "debug"
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		MaxFPS:  DefaultMaxFPS,
		Sink:    DefaultSinkConfig(),
		Backend: "pattern",
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxFPS < 1 || c.MaxFPS > MaxRenderFPS {
		return errors.Errorf("max_fps %d out of range 1..%d", c.MaxFPS, MaxRenderFPS)
	}
	if c.Sink.Format == PixelFormatUnknown {
		return errors.New("sink format is required")
	}
	if c.Sink.MaxBuffers < 1 {
		return errors.Errorf("sink max_buffers %d must be at least 1", c.Sink.MaxBuffers)
	}
	if c.Backend == "" {
		return errors.New("backend is required")
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrap(err, "log_level")
		}
	}
	return nil
}

// Apply installs the process-wide settings: log level and library path.
func (c Config) Apply() error {
	if c.LogLevel != "" {
		if err := SetLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.LibraryPath != "" {
		SetLibraryPath(c.LibraryPath)
	}
	return nil
}

// OpenPlayer opens a pipeline with the configured backend and wraps it in a
// Player.
func (c Config) OpenPlayer() (*Player, error) {
	p, err := OpenPipeline(c.Backend, PipelineConfig{Sink: c.Sink})
	if err != nil {
		return nil, err
	}
	player, err := NewPlayer(PlayerConfig{Pipeline: p, MaxFPS: c.MaxFPS})
	if err != nil {
		p.Close()
		return nil, err
	}
	return player, nil
}

// SetLogLevel sets the package log level by name ("debug") or letter ("D").
func SetLogLevel(name string) error {
	level, err := logging.ParseLevel(name)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

// UnmarshalYAML decodes a caps format name such as "RGBA".
func (p *PixelFormat) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	f := ParsePixelFormat(strings.ToUpper(strings.TrimSpace(name)))
	if f == PixelFormatUnknown {
		return errors.Errorf("line %d: unknown pixel format %q", value.Line, name)
	}
	*p = f
	return nil
}

// MarshalYAML encodes the caps format name.
func (p PixelFormat) MarshalYAML() (interface{}, error) {
	return p.CapsName(), nil
}
