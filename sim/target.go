package sim

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-x65icd/protocol"
)

// Sideband and control line masks, mirrored from package icd so the
// simulator stays free of host-side imports.
const (
	sbICD2NORAROM = 0x01
	sbICDCSN      = 0x02
	sbInputsHigh  = 0x04 | 0x08 | 0x10 | 0x40 | 0x80

	ctlPullUps = 0x10 | 0x80
	ctlCDone   = 0x40
)

// ErrNotSelected is returned by Exchange when the ICD chip select is not
// asserted or SPI is routed to the flash.
var ErrNotSelected = errors.New("sim: exchange without icd chip select")

// Target is an in-process model of the ICD core and its target bus. It
// implements the icd.Transport method set.
//
// The model decodes the byte stream of each chip-select session exactly as
// the core does: command byte, 24-bit address, dummy byte and payload for
// bus accesses; control and signal bytes for CPU control; status and trace
// register for trace reads.
//
// CPU cycles come from a queue filled by Feed. A step pulse moves the next
// queued cycle into the trace register; running the CPU moves queued cycles
// into the trace buffer. Steps with reset held latch idle cycles and leave
// the queue alone. A byte forced onto the data bus replaces the data of the
// next stepped cycle only.
type Target struct {
	sram     []byte
	bootROM  [protocol.BootROMMask + 1]byte
	bankRegs [protocol.BankRegMask + 1]byte
	ioRegs   [protocol.IORegMask + 1]byte

	sbValue, sbDir   byte
	ctlValue, ctlDir byte
	selected         bool

	// CDone is reported on the configuration-done control line
	CDone bool

	// command stream state of the current chip-select session
	pos    int
	cmd    byte
	addr   uint32
	access protocol.BusAccess
	status protocol.Status

	ctl          protocol.CPUControl
	running      bool
	forced       *byte
	ignoreWrites bool

	traceReg protocol.TraceFrame
	valid    bool
	overflow bool
	readOut  bool
	pending  []protocol.TraceFrame
	buffer   []protocol.TraceFrame
	depth    int
	cycles   byte

	commands []byte
	sessions int

	exchangeFailAt int
	exchangeErr    error
	sidebandFailAt int
	sidebandErr    error
}

// New returns a target with cleared memory, configuration done and the CPU
// stopped.
func New() *Target {
	return &Target{
		sram:           make([]byte, protocol.SRAMSize),
		CDone:          true,
		depth:          protocol.TraceBufferDepth,
		exchangeFailAt: -1,
		sidebandFailAt: -1,
	}
}

// Exchange clocks p through the ICD core and returns the bytes it drives back.
func (t *Target) Exchange(p []byte) ([]byte, error) {
	if t.exchangeFailAt == 0 {
		t.exchangeFailAt = -1
		return nil, t.exchangeErr
	}
	if t.exchangeFailAt > 0 {
		t.exchangeFailAt--
	}
	if !t.selected {
		return nil, ErrNotSelected
	}

	rx := make([]byte, len(p))
	for i, b := range p {
		rx[i] = t.clock(b)
	}
	return rx, nil
}

// SetSideband drives the sideband lines. Asserting the ICD chip select with
// SPI routed to the ICD starts a command; releasing it ends the command.
func (t *Target) SetSideband(value, direction byte) error {
	if t.sidebandFailAt == 0 {
		t.sidebandFailAt = -1
		return t.sidebandErr
	}
	if t.sidebandFailAt > 0 {
		t.sidebandFailAt--
	}

	t.sbValue, t.sbDir = value, direction
	sel := direction&sbICDCSN != 0 && value&sbICDCSN == 0 && value&sbICD2NORAROM == 0
	switch {
	case sel && !t.selected:
		t.begin()
	case !sel && t.selected:
		t.end()
	}
	t.selected = sel
	return nil
}

// ReadSideband returns driven lines at their driven level and inputs pulled high.
func (t *Target) ReadSideband() (byte, error) {
	return t.sbValue&t.sbDir | sbInputsHigh&^t.sbDir, nil
}

// SetControl drives the control lines.
func (t *Target) SetControl(value, direction byte) error {
	t.ctlValue, t.ctlDir = value, direction
	return nil
}

// ReadControl returns the control lines; CDONE follows the CDone field.
func (t *Target) ReadControl() (byte, error) {
	in := byte(ctlPullUps)
	if t.CDone {
		in |= ctlCDone
	}
	return t.ctlValue&t.ctlDir | in&^t.ctlDir, nil
}

// Control returns the last driven value and direction of the control group.
func (t *Target) Control() (value, direction byte) {
	return t.ctlValue, t.ctlDir
}

// Sideband returns the last driven value and direction of the sideband group.
func (t *Target) Sideband() (value, direction byte) {
	return t.sbValue, t.sbDir
}

// Selected reports whether the ICD chip select is asserted.
func (t *Target) Selected() bool {
	return t.selected
}

// Feed queues CPU cycles to be produced by step pulses or by running.
func (t *Target) Feed(frames ...protocol.TraceFrame) {
	t.pending = append(t.pending, frames...)
}

// SetBufferDepth sets the trace buffer capacity. The default is
// protocol.TraceBufferDepth.
func (t *Target) SetBufferDepth(n int) {
	if n > 0 {
		t.depth = n
	}
}

// CPU returns the last CPU control latch and whether the CPU runs.
func (t *Target) CPU() (protocol.CPUControl, bool) {
	return t.ctl, t.running
}

// ForcedOpcode returns the opcode forced onto the data bus for the next step,
// or nil.
func (t *Target) ForcedOpcode() (*byte, bool) {
	return t.forced, t.ignoreWrites
}

// Commands returns the command byte of every session seen so far.
func (t *Target) Commands() []byte {
	return append([]byte(nil), t.commands...)
}

// Sessions returns the number of chip-select sessions seen so far.
func (t *Target) Sessions() int {
	return t.sessions
}

// FailExchange makes the Exchange call after the next n succeed fail with err.
func (t *Target) FailExchange(n int, err error) {
	t.exchangeFailAt, t.exchangeErr = n, err
}

// FailSideband makes the SetSideband call after the next n succeed fail with err.
func (t *Target) FailSideband(n int, err error) {
	t.sidebandFailAt, t.sidebandErr = n, err
}

// Peek returns a copy of n SRAM bytes at addr, bypassing the ICD.
func (t *Target) Peek(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = t.sram[(addr+uint32(i))%protocol.SRAMSize]
	}
	return out
}

// Poke stores data in SRAM at addr, bypassing the ICD.
func (t *Target) Poke(addr uint32, data []byte) {
	for i, b := range data {
		t.sram[(addr+uint32(i))%protocol.SRAMSize] = b
	}
}

func (t *Target) begin() {
	t.pos = 0
	t.cmd = 0
	t.addr = 0
	t.readOut = false
	t.sessions++
}

func (t *Target) end() {
	if t.cmd&protocol.OpcodeMask == protocol.CmdReadTrace && t.readOut {
		t.valid = false
		t.overflow = false
	}
}

// clock processes one byte of the current session and returns the byte
// driven back during the same clock.
func (t *Target) clock(b byte) byte {
	pos := t.pos
	t.pos++

	if pos == 0 {
		t.cmd = b
		t.commands = append(t.commands, b)
		t.start()
		return 0
	}

	switch t.cmd & protocol.OpcodeMask {
	case protocol.CmdGetStatus:
		if pos == protocol.StatusByteOffset {
			return byte(t.status)
		}
	case protocol.CmdBusAccess:
		return t.busByte(pos, b)
	case protocol.CmdCPUControl:
		if pos == 1 {
			t.cpuControl(b)
		}
	case protocol.CmdReadTrace:
		if pos == protocol.StatusByteOffset {
			return byte(t.status)
		}
		if i := pos - protocol.TraceHeaderSize; i >= 0 && i < protocol.TracePayloadSize {
			if i == protocol.TracePayloadSize-1 {
				t.readOut = true
			}
			return t.traceReg.Bytes()[i]
		}
	case protocol.CmdForceDataBus:
		if pos == 1 {
			t.forceDataBus(b)
		}
	}
	return 0
}

// start acts on a freshly received command byte.
func (t *Target) start() {
	switch t.cmd & protocol.OpcodeMask {
	case protocol.CmdGetStatus:
		t.status = t.currentStatus()
	case protocol.CmdBusAccess:
		t.access, _ = protocol.ParseBusAccessCommand(t.cmd)
	case protocol.CmdReadTrace:
		t.readTrace(protocol.ParseTraceRequest(t.cmd))
	}
}

func (t *Target) busByte(pos int, b byte) byte {
	switch {
	case pos <= protocol.AddressSize:
		t.addr |= uint32(b) << (8 * (pos - 1))
		return 0
	case t.access.Direction == protocol.Write:
		t.store(t.addr, b)
	case pos == protocol.BusReadHeaderSize-1:
		// dummy byte
		return 0
	default:
		v := t.load(t.addr)
		if t.access.AutoIncrement {
			t.addr++
		}
		return v
	}
	if t.access.AutoIncrement {
		t.addr++
	}
	return 0
}

func (t *Target) load(addr uint32) byte {
	if t.access.Area == protocol.AreaSRAM {
		return t.sram[addr%protocol.SRAMSize]
	}
	switch {
	case addr&(1<<protocol.AreaBootROMBit) != 0:
		return t.bootROM[addr&protocol.BootROMMask]
	case addr&(1<<protocol.AreaBankRegBit) != 0:
		return t.bankRegs[addr&protocol.BankRegMask]
	case addr&(1<<protocol.AreaIORegBit) != 0:
		return t.ioRegs[addr&protocol.IORegMask]
	}
	return 0xFF
}

func (t *Target) store(addr uint32, b byte) {
	if t.access.Area == protocol.AreaSRAM {
		t.sram[addr%protocol.SRAMSize] = b
		return
	}
	switch {
	case addr&(1<<protocol.AreaBootROMBit) != 0:
		t.bootROM[addr&protocol.BootROMMask] = b
	case addr&(1<<protocol.AreaBankRegBit) != 0:
		t.bankRegs[addr&protocol.BankRegMask] = b
	case addr&(1<<protocol.AreaIORegBit) != 0:
		t.ioRegs[addr&protocol.IORegMask] = b
	}
}

func (t *Target) cpuControl(sig byte) {
	ctl, err := protocol.ParseCPUControlCmd([]byte{t.cmd, sig})
	if err != nil {
		return
	}
	t.ctl = ctl
	t.running = ctl.Run

	switch {
	case ctl.Run:
		for len(t.pending) > 0 && len(t.buffer) < t.depth {
			t.buffer = append(t.buffer, t.nextCycle())
		}
	case ctl.Step && ctl.Reset:
		// fed cycles start once reset is released
		t.cycles++
		t.latch(t.idleCycle())
	case ctl.Step:
		f := t.nextCycle()
		if t.forced != nil {
			f.Data = *t.forced
		}
		t.forced, t.ignoreWrites = nil, false
		t.latch(f)
	}
}

func (t *Target) readTrace(req protocol.TraceRequest) {
	// buffer flags report the state before a dequeue or clear
	before := t.currentStatus()

	if req.Clear {
		t.buffer = t.buffer[:0]
	}
	if req.Dequeue && len(t.buffer) > 0 {
		f := t.buffer[0]
		t.buffer = t.buffer[1:]
		t.latch(f)
	}
	if req.Sample && !t.running {
		// a sample is not a finished cycle and leaves valid alone
		t.traceReg = t.upcoming()
	}

	mask := protocol.StatusBufferNonEmpty | protocol.StatusBufferFull
	t.status = before&mask | t.currentStatus()&^mask
}

func (t *Target) forceDataBus(b byte) {
	t.ignoreWrites = t.cmd&(1<<protocol.IgnoreWritesBit) != 0
	if t.cmd&(1<<protocol.ForceOpcodeBit) != 0 {
		op := b
		t.forced = &op
		return
	}
	t.forced = nil
}

// latch stores f in the trace register, flagging an overflow when the
// previous cycle was never read.
func (t *Target) latch(f protocol.TraceFrame) {
	if t.valid {
		t.overflow = true
	}
	t.traceReg = f
	t.valid = true
}

func (t *Target) upcoming() protocol.TraceFrame {
	if len(t.pending) > 0 {
		return t.pending[0]
	}
	return t.idleCycle()
}

func (t *Target) nextCycle() protocol.TraceFrame {
	t.cycles++
	if len(t.pending) == 0 {
		return t.idleCycle()
	}
	f := t.pending[0]
	t.pending = t.pending[1:]
	return f
}

// idleCycle is a read of 0xFF at 0xFFFF with vector pull and memory lock
// inactive.
func (t *Target) idleCycle() protocol.TraceFrame {
	return protocol.TraceFrame{
		Flags:    protocol.TraceFlagRead | protocol.TraceFlagVectorPull | protocol.TraceFlagMemLock,
		Counter:  t.cycles,
		Data:     0xFF,
		AddrLow:  0xFF,
		AddrHigh: 0xFF,
	}
}

func (t *Target) currentStatus() protocol.Status {
	var s protocol.Status
	if t.valid {
		s |= protocol.StatusTraceValid
	}
	if t.overflow {
		s |= protocol.StatusTraceOverflow
	}
	if len(t.buffer) > 0 {
		s |= protocol.StatusBufferNonEmpty
	}
	if len(t.buffer) >= t.depth {
		s |= protocol.StatusBufferFull
	}
	if t.running {
		s |= protocol.StatusCPURunning
	}
	return s
}

// String summarizes the target state for diagnostics.
func (t *Target) String() string {
	return fmt.Sprintf("sim: selected=%v status=%s pending=%d buffered=%d sessions=%d",
		t.selected, t.currentStatus(), len(t.pending), len(t.buffer), t.sessions)
}
