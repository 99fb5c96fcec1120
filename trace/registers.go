package trace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moffa90/go-x65icd/protocol"
)

// ErrNotAtInstruction is returned by ReadRegisters when the stopped CPU is in
// the middle of an instruction.
var ErrNotAtInstruction = errors.New("cpu is not at an instruction boundary")

// Registers holds the architectural registers of a stopped 65C02.
type Registers struct {
	// PC is the address of the next instruction
	PC uint16

	// SP is the stack pointer; the stack lives at 0x0100|SP
	SP byte

	// P is the processor status
	P byte

	A, X, Y byte
}

// String renders the registers the way a monitor prints them.
func (r Registers) String() string {
	return fmt.Sprintf("A=$%02x X=$%02x Y=$%02x SP=$%02x PC=$%04x P=$%02x=%s",
		r.A, r.X, r.Y, r.SP, r.PC, r.P, FormatStatus(r.P))
}

// FormatStatus renders the processor status bits NV-BDIZC, with '-' for
// clear bits and for the unused bit 5.
func FormatStatus(p byte) string {
	const names = "NV-BDIZC"

	var b strings.Builder
	for i := 0; i < 8; i++ {
		if p&(0x80>>i) != 0 && names[i] != '-' {
			b.WriteByte(names[i])
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// registers picked off a traced cycle
const (
	getPC = 1 << iota
	getSP
	getP
	getA
	getX
	getY
)

// regStep is one CPU cycle of the register readout.
type regStep struct {
	force        bool
	data         byte
	ignoreWrites bool
	sync         bool
	get          int
}

func forced(data byte, sync bool, get int) regStep {
	return regStep{force: true, data: data, sync: sync, get: get}
}

// readoutSteps feeds the CPU PHP, PLP, STA zp, STX a, STY zp and a BRA back
// to the starting PC. The stores are dropped, the flags go to the stack and
// are pulled back, so the CPU state is left unchanged.
var readoutSteps = []regStep{
	forced(0x08, true, getPC), // PHP
	{},
	{get: getSP | getP}, // push of P at 0x0100|SP

	forced(0x28, true, 0), // PLP
	{},
	{},
	{},

	forced(0x85, true, 0), // STA $02
	forced(0x02, false, 0),
	{ignoreWrites: true, get: getA},

	forced(0x8E, true, 0), // STX $4440
	forced(0x40, false, 0),
	forced(0x44, false, 0),
	{ignoreWrites: true, get: getX},

	forced(0x84, true, 0), // STY $06
	forced(0x06, false, 0),
	{ignoreWrites: true, get: getY},

	forced(0x80, true, 0), // BRA -11
	forced(0xF5, false, 0),
	{},
}

// ReadRegisters reads the registers of a stopped CPU sitting at an
// instruction boundary. It forces a short instruction sequence onto the data
// bus and takes the register values off the traced bus cycles; the program
// counter ends where it started.
//
// Example:
//
//	regs, err := ctl.ReadRegisters(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(regs)
func (c *Controller) ReadRegisters(ctx context.Context) (Registers, error) {
	var regs Registers

	status, cyc, err := c.sample(ctx)
	if err != nil {
		return regs, fmt.Errorf("sample: %w", err)
	}
	if status.CPURunning() || status.Valid() {
		return regs, &protocol.UnexpectedStatusError{
			Operation: "read registers",
			Status:    status,
			Reason:    "cpu must be stopped with no unread cycle",
		}
	}
	if !cyc.Sync {
		return regs, fmt.Errorf("at 0x%04X: %w", cyc.Address, ErrNotAtInstruction)
	}

	c.logDebug("register readout", "pc", fmt.Sprintf("0x%04X", cyc.Address))
	for i, st := range readoutSteps {
		if err := c.forceStep(ctx, st); err != nil {
			return regs, fmt.Errorf("readout step %d: %w", i, err)
		}
		cyc, err := c.stepOnce(ctx, false)
		if err != nil {
			return regs, fmt.Errorf("readout step %d: %w", i, err)
		}
		if !cyc.Valid {
			return regs, fmt.Errorf("readout step %d: no cycle traced", i)
		}
		if cyc.Sync != st.sync {
			return regs, fmt.Errorf("readout step %d: sync=%v at 0x%04X, want %v",
				i, cyc.Sync, cyc.Address, st.sync)
		}
		regs.take(st.get, cyc)
	}

	if err := c.cpu.ForceDataBus(ctx, nil, false); err != nil {
		return regs, fmt.Errorf("release data bus: %w", err)
	}
	return regs, nil
}

func (c *Controller) forceStep(ctx context.Context, st regStep) error {
	switch {
	case st.force:
		op := st.data
		return c.cpu.ForceDataBus(ctx, &op, false)
	case st.ignoreWrites:
		return c.cpu.ForceDataBus(ctx, nil, true)
	}
	return nil
}

func (r *Registers) take(get int, cyc Cycle) {
	if get&getPC != 0 {
		r.PC = cyc.Address
	}
	if get&getSP != 0 {
		r.SP = byte(cyc.Address)
	}
	if get&getP != 0 {
		r.P = cyc.Data
	}
	if get&getA != 0 {
		r.A = cyc.Data
	}
	if get&getX != 0 {
		r.X = cyc.Data
	}
	if get&getY != 0 {
		r.Y = cyc.Data
	}
}
