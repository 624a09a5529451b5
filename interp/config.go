package interp

import (
	"fmt"

	"github.com/chazu/rvgen/vm"
)

// Config carries everything the generator reads from the surrounding
// runtime.
type Config struct {
	// UseCompiler enables invocation counting with a side exit to the
	// compilation trigger once InvocationLimit is reached.
	UseCompiler     bool
	InvocationLimit uint32

	// ProfileInterpreter sets the method data pointer in every frame and
	// asks the runtime to build method data once ProfileLimit is reached.
	ProfileInterpreter bool
	ProfileLimit       uint32

	// MathIntrinsics generates the math entries. A math entry with neither
	// a hardware instruction nor a runtime routine is left out.
	MathIntrinsics bool

	Method   vm.MethodLayout
	Thread   vm.ThreadLayout
	Runtime  vm.RuntimeEntries
	Dispatch vm.DispatchTable
}

// DefaultConfig returns the configuration of the reference runtime.
func DefaultConfig() Config {
	return Config{
		UseCompiler:        true,
		InvocationLimit:    10000,
		ProfileInterpreter: false,
		ProfileLimit:       3300,
		MathIntrinsics:     true,
		Method:             vm.DefaultMethodLayout(),
		Thread:             vm.DefaultThreadLayout(),
		Runtime:            vm.DefaultRuntimeEntries(),
		Dispatch:           vm.DispatchTable{Base: 0x7e00_0000_0000},
	}
}

// Validate checks the configuration before generation.
func (c *Config) Validate() error {
	if err := c.Method.Validate(); err != nil {
		return err
	}
	if err := c.Thread.Validate(); err != nil {
		return err
	}
	if err := c.Runtime.Validate(); err != nil {
		return err
	}
	if c.Dispatch.Base == 0 {
		return fmt.Errorf("dispatch table has no address")
	}
	if c.UseCompiler && c.InvocationLimit == 0 {
		return fmt.Errorf("invocation limit must be positive")
	}
	if c.ProfileInterpreter && c.ProfileLimit == 0 {
		return fmt.Errorf("profile limit must be positive")
	}
	return nil
}

func (c *Config) countInvocations() bool { return c.UseCompiler || c.ProfileInterpreter }
