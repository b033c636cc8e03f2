//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the demo.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "configs/wind.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the demo with the Khronos validation layer enabled.
func (Run) Validation() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "configs/wind.toml"),
		withEnv("WIND_VK_VALIDATION=1"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests.
func (Run) Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
