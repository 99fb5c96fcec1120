package protocol

// Direction is the transfer direction of a bus access.
type Direction int

const (
	// Write transfers bytes from the host to the target bus
	Write Direction = iota

	// Read transfers bytes from the target bus to the host
	Read
)

func (d Direction) String() string {
	if d == Read {
		return "read"
	}
	return "write"
}

// Area selects which part of the target address space a bus access reaches.
type Area int

const (
	// AreaSRAM is the 2 MiB system SRAM
	AreaSRAM Area = iota

	// AreaOther is the boot ROM, bank registers or IO registers,
	// chosen by the high address bits
	AreaOther
)

// BusAccess describes one bus memory access command.
type BusAccess struct {
	// Direction is Read or Write
	Direction Direction

	// AutoIncrement advances the target address register after every byte.
	// Required for transfers longer than one byte.
	AutoIncrement bool

	// Area selects SRAM or the other areas
	Area Area

	// Address is the 24-bit start address
	Address uint32

	// Length is the number of payload bytes
	Length int
}

// CPUControl describes the CPU control lines. All fields are sent verbatim on
// every CPU control command; the target owns the CPU state machine.
type CPUControl struct {
	// Run lets the CPU run freely
	Run bool

	// Step pulses one CPU cycle (CPU must be stopped)
	Step bool

	// Reset holds the CPU reset line asserted
	Reset bool

	ForceIRQ   bool
	ForceNMI   bool
	ForceAbort bool
	BlockIRQ   bool
	BlockNMI   bool
	BlockAbort bool
}

// TraceRequest holds the option bits of a read trace command.
type TraceRequest struct {
	// Dequeue moves the next trace buffer word into the trace register
	Dequeue bool

	// Clear empties the trace buffer
	Clear bool

	// Sample captures the trace register from the current (stopped) CPU state
	Sample bool
}

// Status is the ICD status byte returned by the status and trace commands.
type Status byte

// TraceStatus is the status byte as returned alongside a trace frame.
type TraceStatus = Status

// Status bits.
const (
	StatusTraceValid     Status = 0x01
	StatusTraceOverflow  Status = 0x02
	StatusBufferNonEmpty Status = 0x04
	StatusBufferFull     Status = 0x08
	StatusCPURunning     Status = 0x10
)

// Valid reports whether the trace register holds an unread cycle.
func (s Status) Valid() bool { return s&StatusTraceValid != 0 }

// Overflow reports whether a cycle was overwritten before it was read.
func (s Status) Overflow() bool { return s&StatusTraceOverflow != 0 }

// BufferNonEmpty reports whether the trace buffer holds entries.
func (s Status) BufferNonEmpty() bool { return s&StatusBufferNonEmpty != 0 }

// BufferFull reports whether the trace buffer is full.
func (s Status) BufferFull() bool { return s&StatusBufferFull != 0 }

// CPURunning reports whether the CPU is free-running. Trace register reads
// return dummy data while it is.
func (s Status) CPURunning() bool { return s&StatusCPURunning != 0 }

// TraceFrame is one captured CPU bus cycle.
//
// Wire layout (TracePayloadSize bytes):
//
//	[STATUS][COUNTER][DATA][ADDR_L][ADDR_H]
type TraceFrame struct {
	// Flags holds the CPU status lines, see the Trace* bit constants
	Flags byte

	// Counter is the cycle counter / control lines byte
	Counter byte

	// Data is the CPU data bus
	Data byte

	// AddrLow and AddrHigh form the 16-bit CPU address
	AddrLow  byte
	AddrHigh byte
}

// Trace status flag bits (TraceFrame.Flags).
const (
	// TraceFlagRead is set on read cycles, clear on writes
	TraceFlagRead = 0x01

	// TraceFlagVectorPull is active low: clear during a vector fetch
	TraceFlagVectorPull = 0x08

	// TraceFlagMemLock is active low: clear during a locked read-modify-write
	TraceFlagMemLock = 0x10

	// TraceFlagSync is set on opcode fetch cycles
	TraceFlagSync = 0x20
)

// Address returns the 16-bit CPU address of the cycle.
func (f TraceFrame) Address() uint16 {
	return uint16(f.AddrHigh)<<8 | uint16(f.AddrLow)
}

// Bytes returns the wire encoding of the frame.
func (f TraceFrame) Bytes() []byte {
	return []byte{f.Flags, f.Counter, f.Data, f.AddrLow, f.AddrHigh}
}
