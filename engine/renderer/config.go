package renderer

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

// Config is handed to the renderer and its backend at construction time.
type Config struct {
	ApplicationName      string
	EnableValidation     bool
	FramesInFlight       uint32
	PreferredFormat      SurfaceFormat
	PreferredPresentMode PresentMode
	AssetDir             string
	ShaderName           string
	DescriptorPoolSize   uint32
	ClearColor           [4]float32
}

func DefaultConfig() Config {
	return Config{
		ApplicationName:      "Wind",
		FramesInFlight:       2,
		PreferredFormat:      SurfaceFormat{Format: FormatR8G8B8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear},
		PreferredPresentMode: PresentModeImmediate,
		AssetDir:             "assets/shaders",
		ShaderName:           "shader",
		DescriptorPoolSize:   DefaultDescriptorPoolSize,
	}
}

// NewConfig translates the engine configuration into a renderer configuration.
func NewConfig(cfg *core.Config) (Config, error) {
	mode, err := ParsePresentMode(cfg.Renderer.PresentMode)
	if err != nil {
		return Config{}, err
	}
	format, err := ParseFormat(cfg.Renderer.SurfaceFormat)
	if err != nil {
		return Config{}, err
	}
	return Config{
		ApplicationName:      cfg.Application.Name,
		EnableValidation:     cfg.Renderer.EnableValidation,
		FramesInFlight:       cfg.Renderer.FramesInFlight,
		PreferredFormat:      SurfaceFormat{Format: format, ColorSpace: ColorSpaceSrgbNonlinear},
		PreferredPresentMode: mode,
		AssetDir:             cfg.Renderer.AssetDir,
		ShaderName:           cfg.Renderer.ShaderName,
		DescriptorPoolSize:   cfg.Renderer.DescriptorPoolSize,
		ClearColor:           cfg.Renderer.ClearColor,
	}, nil
}

func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "immediate":
		return PresentModeImmediate, nil
	case "mailbox":
		return PresentModeMailbox, nil
	case "fifo":
		return PresentModeFifo, nil
	case "fifo_relaxed":
		return PresentModeFifoRelaxed, nil
	default:
		return 0, errors.Errorf("unknown present mode %q", s)
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "r8g8b8a8_unorm":
		return FormatR8G8B8A8Unorm, nil
	case "b8g8r8a8_unorm":
		return FormatB8G8R8A8Unorm, nil
	case "r8g8b8a8_srgb":
		return FormatR8G8B8A8Srgb, nil
	case "b8g8r8a8_srgb":
		return FormatB8G8R8A8Srgb, nil
	default:
		return 0, errors.Errorf("unknown surface format %q", s)
	}
}
