package protocol

// ProtocolVersion identifies the ICD core command set implemented by this library.
const ProtocolVersion = "x65-icd-1"

// Command opcodes, carried in the low bits of the first byte of every frame.
const (
	// CmdGetStatus reads the ICD/CPU status byte
	CmdGetStatus = 0x0

	// CmdBusAccess reads or writes the target memory bus
	CmdBusAccess = 0x1

	// CmdCPUControl sets the run/step/reset lines of the target CPU
	CmdCPUControl = 0x2

	// CmdReadTrace reads the CPU trace register
	CmdReadTrace = 0x3

	// CmdForceDataBus forces an opcode onto the CPU data bus
	CmdForceDataBus = 0x6

	// OpcodeMask selects the opcode bits of a command byte
	OpcodeMask = 0x0F
)

// Option bits of a bus access command byte.
const (
	// BusOtherAreaBit selects the non-SRAM areas (boot ROM, bank and IO registers) when set
	BusOtherAreaBit = 4

	// BusReadBit selects a read when set and a write when clear
	BusReadBit = 5

	// BusAutoIncBit makes the target advance its address register after every byte
	BusAutoIncBit = 6
)

// Option bits of a CPU control command byte.
const (
	// CPURunBit lets the CPU run freely when set
	CPURunBit = 4

	// CPUStepBit pulses a single CPU cycle when set; the CPU must be stopped
	CPUStepBit = 5
)

// Bits of the CPU control signal byte (second byte of the frame).
const (
	SignalReset      = 0x01
	SignalForceIRQ   = 0x02
	SignalForceNMI   = 0x04
	SignalForceAbort = 0x08
	SignalBlockIRQ   = 0x10
	SignalBlockNMI   = 0x20
	SignalBlockAbort = 0x40
)

// Option bits of a read trace command byte.
const (
	// TraceDequeueBit moves the next word of the trace buffer into the trace register
	TraceDequeueBit = 4

	// TraceClearBit empties the trace buffer
	TraceClearBit = 5

	// TraceSampleBit samples the trace register from the stopped CPU
	TraceSampleBit = 6
)

// Option bits of a force data bus command byte.
const (
	// ForceOpcodeBit forces the second frame byte onto the CPU data bus
	ForceOpcodeBit = 4

	// IgnoreWritesBit makes the target drop CPU write cycles
	IgnoreWritesBit = 5
)

// Address bits selecting an area when BusOtherAreaBit is set.
const (
	AreaBootROMBit = 20
	AreaBankRegBit = 19
	AreaIORegBit   = 18

	// IORegBase positions the ICD scratchpad for IO register accesses
	IORegBase = 0x9F00

	BootROMMask = 0xFFF
	BankRegMask = 0x1
	IORegMask   = 0xFF
)

// Frame layout sizes in bytes.
const (
	// AddressSize is the size of a bus address on the wire (24 bits, little-endian)
	AddressSize = 3

	// BusWriteHeaderSize is cmd + address
	BusWriteHeaderSize = 1 + AddressSize

	// BusReadHeaderSize is cmd + address + one dummy byte
	BusReadHeaderSize = 1 + AddressSize + 1

	// CPUControlFrameSize is cmd + signal byte
	CPUControlFrameSize = 2

	// ForceDataBusFrameSize is cmd + forced byte
	ForceDataBusFrameSize = 2

	// TraceHeaderSize is cmd + dummy + status
	TraceHeaderSize = 3

	// StatusHeaderSize is cmd + dummy + status
	StatusHeaderSize = 3

	// TracePayloadSize is the fixed size of a trace frame
	TracePayloadSize = 5

	// StatusByteOffset is the position of the status byte in trace and status headers
	StatusByteOffset = 2

	// TraceBufferDepth is the number of cycles the trace buffer of the ICD
	// core holds while the CPU runs
	TraceBufferDepth = 512
)

// Address space limits.
const (
	// MaxAddress is the largest address expressible in a bus access header
	MaxAddress = 1<<24 - 1

	// SRAMSize is the size of the target SRAM (2 MiB)
	SRAMSize = 2048 * 1024

	// MaxRequestSize is the largest payload sent in one selected session (FTDI buffer limit)
	MaxRequestSize = 16384
)
