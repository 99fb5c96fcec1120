package icd

import (
	"time"

	"github.com/moffa90/go-x65icd/protocol"
)

// Config holds the session configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// MaxRequestSize is the largest payload sent in one chip-select session.
	// Longer transfers are split. Default is protocol.MaxRequestSize.
	MaxRequestSize int

	// PollInterval is the delay between status reads in WaitStatus
	PollInterval time.Duration

	// PollTimeout bounds WaitStatus
	PollTimeout time.Duration

	// SettleDelay is waited after the routing or reset lines change
	SettleDelay time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		MaxRequestSize: protocol.MaxRequestSize,
		PollInterval:   time.Millisecond,
		PollTimeout:    time.Second,
		SettleDelay:    time.Millisecond,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithLogger sets a logger for session operations.
//
// Example:
//
//	s, err := icd.Open(ctx, transport, icd.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMaxRequestSize sets the largest payload per chip-select session.
// Values outside 1..protocol.MaxRequestSize are ignored.
//
// Example:
//
//	s, err := icd.Open(ctx, transport, icd.WithMaxRequestSize(4096))
func WithMaxRequestSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.MaxRequestSize {
			c.MaxRequestSize = size
		}
	}
}

// WithPollInterval sets the delay between status reads in WaitStatus.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithPollTimeout sets the upper bound of WaitStatus.
//
// Example:
//
//	s, err := icd.Open(ctx, transport, icd.WithPollTimeout(5*time.Second))
func WithPollTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollTimeout = d
		}
	}
}

// WithSettleDelay sets the wait after routing or reset line changes.
// Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.SettleDelay = d
		}
	}
}
