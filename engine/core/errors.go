package core

import (
	"errors"
)

var (
	ErrNoSuitableDevice       = errors.New("no physical device meets the requirements")
	ErrValidationLayerMissing = errors.New("required validation layer is missing")
	ErrNoSurfaceFormat        = errors.New("surface reports no supported formats")
	ErrNoPresentMode          = errors.New("surface reports no supported present modes")
	ErrInvalidCommandState    = errors.New("command buffer is not in the required state")
	ErrRendererShutdown       = errors.New("renderer already shut down")
)
