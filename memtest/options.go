package memtest

import (
	"time"

	"github.com/moffa90/go-x65icd/icd"
)

// Logger is the key/value logging interface shared with package icd.
type Logger = icd.Logger

// Default block and page sizes.
const (
	// DefaultBlockSize is the unit of comparison and of each bus transfer
	DefaultBlockSize = 256

	// DefaultPageSize is the progress reporting granularity
	DefaultPageSize = 8192
)

// Config holds the memory test configuration.
type Config struct {
	// BlockSize is the number of bytes written, read and compared at once
	BlockSize int

	// PageSize is the number of bytes between progress reports.
	// Rounded up to a whole number of blocks.
	PageSize int

	// ProgressCallback is called at every page boundary (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging the test (optional)
	Logger Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		BlockSize: DefaultBlockSize,
		PageSize:  DefaultPageSize,
	}
}

// Option is a functional option for configuring Run.
type Option func(*Config)

// WithBlockSize sets the comparison block size.
//
// Example:
//
//	report, err := memtest.Run(ctx, session, 123, 0, memtest.Size2MB, memtest.WithBlockSize(1024))
func WithBlockSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.BlockSize = size
		}
	}
}

// WithPageSize sets the progress reporting granularity.
func WithPageSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.PageSize = size
		}
	}
}

// WithProgressCallback sets a callback function to track test progress.
//
// Example:
//
//	report, err := memtest.Run(ctx, session, seed, 0, memtest.Size2MB,
//	    memtest.WithProgressCallback(func(p memtest.Progress) {
//	        fmt.Printf("[%s] page %d %.1f%%\n", p.Phase, p.Page, p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the test.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Progress describes the position of a running test.
type Progress struct {
	// Phase describes the current pass:
	//   "writing"   - Pass 1, writing the pattern
	//   "verifying" - Pass 2, reading back and comparing
	//   "complete"  - Test finished
	Phase string

	// Page is the absolute page number of the address being tested
	Page int

	// Address is the first address of the current page
	Address uint32

	// Block is the index of the next block relative to the test start
	Block int

	// TotalBlocks is the number of blocks under test
	TotalBlocks int

	// Errors is the number of mismatching blocks found so far
	Errors int

	// Percentage is the overall completion (0.0 to 100.0) across both passes
	Percentage float64

	// ElapsedTime is the time elapsed since the test started
	ElapsedTime time.Duration
}

// ProgressCallback is called at page boundaries during the test.
// Implementations should return quickly; the bus is idle while it runs.
type ProgressCallback func(Progress)

// Phase names reported in Progress.
const (
	PhaseWriting   = "writing"
	PhaseVerifying = "verifying"
	PhaseComplete  = "complete"
)
