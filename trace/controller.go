package trace

import (
	"context"
	"errors"
	"fmt"

	"github.com/moffa90/go-x65icd/protocol"
)

// ErrNoSync is returned by StepInstructions when the CPU runs
// MaxCyclesWithoutSync cycles without an opcode fetch.
var ErrNoSync = errors.New("no opcode fetch within cycle bound")

// CPU is the part of the ICD used to control and trace the target CPU;
// *icd.Session implements it.
type CPU interface {
	CPUControl(ctx context.Context, ctl protocol.CPUControl) error
	ReadTrace(ctx context.Context, req protocol.TraceRequest) (protocol.TraceStatus, protocol.TraceFrame, error)
	ForceDataBus(ctx context.Context, opcode *byte, ignoreWrites bool) error
}

// Controller sequences CPU control and trace reads.
type Controller struct {
	cpu    CPU
	config Config
	reads  int
}

// NewController creates a controller over cpu.
//
// Example:
//
//	ctl := trace.NewController(session, trace.WithLogger(myLogger))
//	if err := ctl.Halt(ctx); err != nil {
//	    return err
//	}
//	cycles, err := ctl.Step(ctx, 32)
func NewController(cpu CPU, opts ...Option) *Controller {
	if cpu == nil {
		panic("cpu cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Controller{cpu: cpu, config: cfg}
}

// Halt stops the CPU and holds it in reset.
func (c *Controller) Halt(ctx context.Context) error {
	c.logInfo("cpu stop and reset")
	return c.control(ctx, protocol.CPUControl{Reset: true})
}

// Run releases reset and lets the CPU run freely.
func (c *Controller) Run(ctx context.Context) error {
	c.logInfo("cpu run")
	return c.control(ctx, protocol.CPUControl{Run: true})
}

// Stop stops a running CPU without asserting reset.
func (c *Controller) Stop(ctx context.Context) error {
	c.logInfo("cpu stop")
	return c.control(ctx, protocol.CPUControl{})
}

// StepInReset pulses n CPU cycles with reset held, letting the CPU finish
// its reset sequence, and reads the trace register after each pulse.
func (c *Controller) StepInReset(ctx context.Context, n int) ([]Cycle, error) {
	c.logDebug("cpu step in reset", "cycles", n)
	return c.steps(ctx, n, true)
}

// Step releases reset and pulses n CPU cycles, reading the trace register
// after each pulse.
func (c *Controller) Step(ctx context.Context, n int) ([]Cycle, error) {
	return c.steps(ctx, n, false)
}

func (c *Controller) steps(ctx context.Context, n int, reset bool) ([]Cycle, error) {
	cycles := make([]Cycle, 0, n)
	for i := 0; i < n; i++ {
		cyc, err := c.stepOnce(ctx, reset)
		if err != nil {
			return cycles, fmt.Errorf("step %d: %w", i, err)
		}
		cycles = append(cycles, cyc)
	}
	return cycles, nil
}

// StepInstructions steps until n opcode fetches have been traced and
// returns every cycle seen. It fails with ErrNoSync when more than
// MaxCyclesWithoutSync cycles pass without one.
func (c *Controller) StepInstructions(ctx context.Context, n int) ([]Cycle, error) {
	var cycles []Cycle
	syncs, since := 0, 0

	for syncs < n {
		cyc, err := c.stepOnce(ctx, false)
		if err != nil {
			return cycles, fmt.Errorf("instruction %d: %w", syncs, err)
		}
		cycles = append(cycles, cyc)

		if cyc.Sync {
			syncs++
			since = 0
			continue
		}
		since++
		if since >= c.config.MaxCyclesWithoutSync {
			return cycles, fmt.Errorf("instruction %d after %d cycles: %w", syncs, since, ErrNoSync)
		}
	}
	return cycles, nil
}

// Read reads the trace register as it stands.
func (c *Controller) Read(ctx context.Context) (Cycle, error) {
	return c.read(ctx, protocol.TraceRequest{})
}

// Sample captures the current state of the stopped CPU into the trace
// register and reads it. Only the address and flags are meaningful; the data
// bus of an upcoming cycle is not driven yet.
func (c *Controller) Sample(ctx context.Context) (Cycle, error) {
	_, cyc, err := c.sample(ctx)
	return cyc, err
}

// Drain dequeues the trace buffer filled while the CPU ran, oldest first, up
// to limit cycles.
func (c *Controller) Drain(ctx context.Context, limit int) ([]Cycle, error) {
	var cycles []Cycle
	for len(cycles) < limit {
		cyc, err := c.read(ctx, protocol.TraceRequest{Dequeue: true})
		if err != nil {
			return cycles, err
		}
		if !cyc.Valid {
			break
		}
		cycles = append(cycles, cyc)
	}
	return cycles, nil
}

// ClearBuffer empties the trace buffer.
func (c *Controller) ClearBuffer(ctx context.Context) error {
	_, _, err := c.cpu.ReadTrace(ctx, protocol.TraceRequest{Clear: true})
	return err
}

func (c *Controller) stepOnce(ctx context.Context, reset bool) (Cycle, error) {
	if err := c.control(ctx, protocol.CPUControl{Step: true, Reset: reset}); err != nil {
		return Cycle{}, err
	}

	status, frame, err := c.cpu.ReadTrace(ctx, protocol.TraceRequest{})
	if err != nil {
		return Cycle{}, err
	}
	if status.CPURunning() {
		return Cycle{}, &protocol.UnexpectedStatusError{
			Operation: "step",
			Status:    status,
			Reason:    "cpu is running",
		}
	}
	return c.emit(Decode(status, frame)), nil
}

func (c *Controller) sample(ctx context.Context) (protocol.TraceStatus, Cycle, error) {
	status, frame, err := c.cpu.ReadTrace(ctx, protocol.TraceRequest{Sample: true})
	if err != nil {
		return status, Cycle{}, err
	}
	return status, c.emit(Decode(status, frame)), nil
}

func (c *Controller) read(ctx context.Context, req protocol.TraceRequest) (Cycle, error) {
	status, frame, err := c.cpu.ReadTrace(ctx, req)
	if err != nil {
		return Cycle{}, err
	}
	return c.emit(Decode(status, frame)), nil
}

func (c *Controller) emit(cyc Cycle) Cycle {
	if cyc.Overflow {
		c.logDebug("trace overflow", "read", c.reads)
	}
	if c.config.CycleCallback != nil {
		c.config.CycleCallback(c.reads, cyc)
	}
	c.reads++
	return cyc
}

func (c *Controller) control(ctx context.Context, ctl protocol.CPUControl) error {
	return c.cpu.CPUControl(ctx, ctl)
}

// logDebug logs a debug message if logger is configured.
func (c *Controller) logDebug(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is configured.
func (c *Controller) logInfo(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keysAndValues...)
	}
}
