package core

import (
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ValidationEnvVar toggles Vulkan validation layers, overriding the config file.
const ValidationEnvVar = "WIND_VK_VALIDATION"

type ApplicationSection struct {
	Name      string `toml:"name"`
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	// Root directory indexed and watched by the asset manager.
	AssetRoot string `toml:"asset_root"`
}

type RendererSection struct {
	EnableValidation   bool       `toml:"enable_validation"`
	FramesInFlight     uint32     `toml:"frames_in_flight"`
	PresentMode        string     `toml:"present_mode"`
	SurfaceFormat      string     `toml:"surface_format"`
	AssetDir           string     `toml:"asset_dir"`
	ShaderName         string     `toml:"shader_name"`
	DescriptorPoolSize uint32     `toml:"descriptor_pool_size"`
	ClearColor         [4]float32 `toml:"clear_color"`
	HotReloadShaders   bool       `toml:"hot_reload_shaders"`
}

type LogSection struct {
	Level string `toml:"level"`
}

type Config struct {
	Application ApplicationSection `toml:"application"`
	Renderer    RendererSection    `toml:"renderer"`
	Log         LogSection         `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationSection{
			Name:      "Wind",
			StartPosX: 100,
			StartPosY: 100,
			Width:     1280,
			Height:    720,
			AssetRoot: "assets",
		},
		Renderer: RendererSection{
			FramesInFlight:     2,
			PresentMode:        "immediate",
			SurfaceFormat:      "r8g8b8a8_unorm",
			AssetDir:           "assets/shaders",
			ShaderName:         "shader",
			DescriptorPoolSize: 40,
			ClearColor:         [4]float32{0.0, 0.0, 0.0, 1.0},
		},
		Log: LogSection{
			Level: "info",
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. An empty path yields the defaults.
// The validation environment variable is applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
		if err := ParseConfig(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ParseConfig(data []byte, cfg *Config) error {
	return toml.Unmarshal(data, cfg)
}

// ApplyEnv applies environment overrides using the given lookup function.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	v, ok := lookup(ValidationEnvVar)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return errors.Wrapf(err, "invalid value %q for %s", v, ValidationEnvVar)
	}
	cfg.Renderer.EnableValidation = enabled
	return nil
}

func (c *Config) Validate() error {
	if c.Renderer.FramesInFlight == 0 {
		return errors.New("renderer.frames_in_flight must be at least 1")
	}
	if c.Renderer.DescriptorPoolSize == 0 {
		return errors.New("renderer.descriptor_pool_size must be at least 1")
	}
	if c.Renderer.ShaderName == "" {
		return errors.New("renderer.shader_name must not be empty")
	}
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return errors.Errorf("invalid window size %dx%d", c.Application.Width, c.Application.Height)
	}
	return nil
}
