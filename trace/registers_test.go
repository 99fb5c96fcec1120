package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-x65icd/protocol"
)

func frame(flags byte, addr uint16, data byte) protocol.TraceFrame {
	return protocol.TraceFrame{Flags: flags, Data: data, AddrLow: byte(addr), AddrHigh: byte(addr >> 8)}
}

// readoutCycles is what a 65C02 stopped at 0x0300 puts on the bus while the
// register readout runs. Forced cycles carry NOPs; the target replaces them.
var readoutCycles = []protocol.TraceFrame{
	frame(0x39, 0x0300, 0xEA), // PHP
	frame(0x19, 0x0301, 0xEA),
	frame(0x18, 0x01F3, 0xB1),

	frame(0x39, 0x0301, 0xEA), // PLP
	frame(0x19, 0x0302, 0xEA),
	frame(0x19, 0x01F2, 0x00),
	frame(0x19, 0x01F3, 0xB1),

	frame(0x39, 0x0302, 0xEA), // STA zp
	frame(0x19, 0x0303, 0xEA),
	frame(0x18, 0x0002, 0x42),

	frame(0x39, 0x0304, 0xEA), // STX a
	frame(0x19, 0x0305, 0xEA),
	frame(0x19, 0x0306, 0xEA),
	frame(0x18, 0x4440, 0x17),

	frame(0x39, 0x0307, 0xEA), // STY zp
	frame(0x19, 0x0308, 0xEA),
	frame(0x18, 0x0006, 0x99),

	frame(0x39, 0x0309, 0xEA), // BRA
	frame(0x19, 0x030A, 0xEA),
	frame(0x19, 0x030B, 0xEA),
}

func TestReadRegisters(t *testing.T) {
	var fetched []string
	ctl, target := newSimController(t, WithCycleCallback(func(i int, c Cycle) {
		if c.Valid && c.Sync {
			fetched = append(fetched, c.Instruction)
		}
	}))
	target.Feed(readoutCycles...)
	target.Feed(frame(0x39, 0x0300, 0xEA))

	regs, err := ctl.ReadRegisters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Registers{PC: 0x0300, SP: 0xF3, P: 0xB1, A: 0x42, X: 0x17, Y: 0x99}, regs)
	assert.Equal(t, "A=$42 X=$17 Y=$99 SP=$f3 PC=$0300 P=$b1=N--B---C", regs.String())

	assert.Equal(t, []string{"PHP s", "PLP s", "STA zp", "STX a", "STY zp", "BRA r"}, fetched)

	op, ignoreWrites := target.ForcedOpcode()
	assert.Nil(t, op)
	assert.False(t, ignoreWrites)

	// the CPU is back at the instruction it was stopped on
	c, err := ctl.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0300), c.Address)
	assert.True(t, c.Sync)
}

func TestReadRegistersMidInstruction(t *testing.T) {
	ctl, target := newSimController(t)
	target.Feed(frame(0x19, 0x0301, 0x42))

	_, err := ctl.ReadRegisters(context.Background())
	assert.True(t, errors.Is(err, ErrNotAtInstruction), "error = %v", err)
	assert.Equal(t, []byte{0x43}, target.Commands())
}

func TestReadRegistersRunning(t *testing.T) {
	ctl := NewController(runningCPU{})

	_, err := ctl.ReadRegisters(context.Background())
	var use *protocol.UnexpectedStatusError
	require.True(t, errors.As(err, &use), "error = %v", err)
	assert.True(t, use.Status.CPURunning())
}

func TestReadRegistersLostSync(t *testing.T) {
	ctl, target := newSimController(t)
	// an interrupt taken instead of the forced PHP leaves no opcode fetch
	target.Feed(frame(0x39, 0x0300, 0xEA), frame(0x39, 0x0301, 0xEA))

	_, err := ctl.ReadRegisters(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readout step 1")
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		p    byte
		want string
	}{
		{p: 0x00, want: "--------"},
		{p: 0x20, want: "--------"},
		{p: 0xFF, want: "NV-BDIZC"},
		{p: 0x36, want: "---B-IZ-"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatStatus(tt.p), "P=0x%02X", tt.p)
	}
}
