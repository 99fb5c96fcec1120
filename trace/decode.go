package trace

import (
	"github.com/moffa90/go-x65icd/disasm"
	"github.com/moffa90/go-x65icd/protocol"
)

// Cycle is one decoded CPU bus cycle.
type Cycle struct {
	// Valid is set when the trace register held an unread cycle
	Valid bool

	// Overflow is set when earlier cycles were lost before this read
	Overflow bool

	// Read is true for read cycles and false for writes
	Read bool

	// VectorPull is true while the CPU fetches an interrupt or reset vector
	VectorPull bool

	// MemLock is true during the locked cycles of a read-modify-write
	MemLock bool

	// Sync is true on opcode fetch cycles
	Sync bool

	Address uint16
	Data    byte
	Counter byte

	// Flags is the raw status byte of the frame
	Flags byte

	// Instruction is the disassembly of Data on sync cycles, empty otherwise
	Instruction string
}

// DecodeFlags decodes the status byte of a trace frame. Vector pull and
// memory lock are active low on the wire and reported active high here.
func DecodeFlags(flags byte) (read, vectorPull, memLock, sync bool) {
	return flags&protocol.TraceFlagRead != 0,
		flags&protocol.TraceFlagVectorPull == 0,
		flags&protocol.TraceFlagMemLock == 0,
		flags&protocol.TraceFlagSync != 0
}

// Decode turns a trace register read into a Cycle. On sync cycles the data
// byte is the opcode and is looked up in the W65C02 table; on all other
// cycles it is operand or data and gets no instruction text.
func Decode(status protocol.TraceStatus, frame protocol.TraceFrame) Cycle {
	c := Cycle{
		Valid:    status.Valid(),
		Overflow: status.Overflow(),
		Address:  frame.Address(),
		Data:     frame.Data,
		Counter:  frame.Counter,
		Flags:    frame.Flags,
	}
	c.Read, c.VectorPull, c.MemLock, c.Sync = DecodeFlags(frame.Flags)

	if c.Sync {
		c.Instruction, _ = disasm.Lookup(frame.Data)
	}
	return c
}
