package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

// CreateRenderPass describes a single colour attachment of the given format that is
// cleared on load and transitioned for presentation.
func CreateRenderPass(device Device, format Format) (RenderPass, error) {
	pass, err := device.CreateRenderPass(format)
	if err != nil {
		err = errors.Wrapf(err, "failed to create render pass for format %d", format)
		core.LogError(err.Error())
		return nil, err
	}
	return pass, nil
}
