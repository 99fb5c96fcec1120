package trace

import "github.com/moffa90/go-x65icd/icd"

// Logger is the key/value logging interface shared with package icd.
type Logger = icd.Logger

// CycleCallback is called with every cycle read by the controller, in order.
//
// Example:
//
//	ctl := trace.NewController(session,
//	    trace.WithCycleCallback(func(i int, c trace.Cycle) {
//	        fmt.Printf("Step #%3d:  %s\n", i, trace.FormatCycle(c, false))
//	    }),
//	)
type CycleCallback func(index int, c Cycle)

// Config holds the controller configuration.
type Config struct {
	// Logger is used for logging CPU control (optional)
	Logger Logger

	// CycleCallback receives every cycle read (optional)
	CycleCallback CycleCallback

	// MaxCyclesWithoutSync bounds StepInstructions between two opcode fetches
	MaxCyclesWithoutSync int
}

// MaxCyclesWithoutSync is the default bound of StepInstructions. No W65C02
// instruction, including interrupt entry, runs this long.
const MaxCyclesWithoutSync = 32

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		MaxCyclesWithoutSync: MaxCyclesWithoutSync,
	}
}

// Option is a functional option for configuring the Controller.
type Option func(*Config)

// WithLogger sets a logger for the controller.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithCycleCallback sets a callback receiving every cycle read.
func WithCycleCallback(callback CycleCallback) Option {
	return func(c *Config) {
		c.CycleCallback = callback
	}
}

// WithMaxCyclesWithoutSync sets the bound of StepInstructions.
func WithMaxCyclesWithoutSync(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxCyclesWithoutSync = n
		}
	}
}
