package protocol

import (
	"fmt"
)

// BusAccessCommand returns the command byte for a bus access.
func BusAccessCommand(acc BusAccess) byte {
	cmd := byte(CmdBusAccess)
	if acc.Area == AreaOther {
		cmd |= 1 << BusOtherAreaBit
	}
	if acc.Direction == Read {
		cmd |= 1 << BusReadBit
	}
	if acc.AutoIncrement {
		cmd |= 1 << BusAutoIncBit
	}
	return cmd
}

// BuildBusAccessHeader constructs the header of a bus access command.
//
// Frame structure:
//
//	Write: [CMD][ADDR_L][ADDR_M][ADDR_H]
//	Read:  [CMD][ADDR_L][ADDR_M][ADDR_H][DUMMY]
//
// The payload follows the header inside the same chip-select session.
// Multi-byte accesses must request auto-increment; the target address
// register only advances within one selected session.
func BuildBusAccessHeader(acc BusAccess) ([]byte, error) {
	if acc.Length <= 0 {
		return nil, fmt.Errorf("length must be positive, got %d", acc.Length)
	}
	if acc.Length > 1 && !acc.AutoIncrement {
		return nil, fmt.Errorf("multi-byte access of %d bytes requires auto-increment", acc.Length)
	}
	if acc.Address > MaxAddress {
		return nil, fmt.Errorf("address 0x%X exceeds 24-bit range", acc.Address)
	}
	if uint64(acc.Address)+uint64(acc.Length) > MaxAddress+1 {
		return nil, fmt.Errorf("access of %d bytes at 0x%06X runs past the 24-bit address space", acc.Length, acc.Address)
	}

	size := BusWriteHeaderSize
	if acc.Direction == Read {
		size = BusReadHeaderSize
	}

	frame := make([]byte, 0, size)
	frame = append(frame, BusAccessCommand(acc))

	// Address (little-endian, 24 bits)
	frame = append(frame, byte(acc.Address), byte(acc.Address>>8), byte(acc.Address>>16))

	if acc.Direction == Read {
		// Dummy byte while the target fetches the first data byte
		frame = append(frame, 0x00)
	}

	return frame, nil
}

// BuildCPUControlCmd constructs a CPU control command frame.
//
// Frame structure:
//
//	[CMD|RUN<<4|STEP<<5][SIGNALS]
//
// SIGNALS bit 0 holds reset asserted; bits 1-6 force or block IRQ, NMI and ABORT.
func BuildCPUControlCmd(ctl CPUControl) []byte {
	cmd := byte(CmdCPUControl)
	if ctl.Run {
		cmd |= 1 << CPURunBit
	}
	if ctl.Step {
		cmd |= 1 << CPUStepBit
	}

	var sig byte
	if ctl.Reset {
		sig |= SignalReset
	}
	if ctl.ForceIRQ {
		sig |= SignalForceIRQ
	}
	if ctl.ForceNMI {
		sig |= SignalForceNMI
	}
	if ctl.ForceAbort {
		sig |= SignalForceAbort
	}
	if ctl.BlockIRQ {
		sig |= SignalBlockIRQ
	}
	if ctl.BlockNMI {
		sig |= SignalBlockNMI
	}
	if ctl.BlockAbort {
		sig |= SignalBlockAbort
	}

	return []byte{cmd, sig}
}

// BuildReadTraceHeader constructs the header of a read trace command.
//
// Frame structure:
//
//	TX: [CMD][DUMMY][DUMMY]
//	RX: [ -- ][ --  ][STATUS]
//
// TracePayloadSize trace bytes follow in the same session.
func BuildReadTraceHeader(req TraceRequest) []byte {
	cmd := byte(CmdReadTrace)
	if req.Dequeue {
		cmd |= 1 << TraceDequeueBit
	}
	if req.Clear {
		cmd |= 1 << TraceClearBit
	}
	if req.Sample {
		cmd |= 1 << TraceSampleBit
	}
	return []byte{cmd, 0x00, 0x00}
}

// BuildGetStatusCmd constructs a get status command frame.
//
// Frame structure:
//
//	TX: [CMD][DUMMY][DUMMY]
//	RX: [ -- ][ --  ][STATUS]
func BuildGetStatusCmd() []byte {
	return []byte{CmdGetStatus, 0x00, 0x00}
}

// BuildForceDataBusCmd constructs a force data bus command frame.
// A nil opcode releases the data bus.
//
// Frame structure:
//
//	[CMD|FORCE<<4|IGNWR<<5][OPCODE]
func BuildForceDataBusCmd(opcode *byte, ignoreWrites bool) []byte {
	cmd := byte(CmdForceDataBus)
	var db byte
	if opcode != nil {
		cmd |= 1 << ForceOpcodeBit
		db = *opcode
	}
	if ignoreWrites {
		cmd |= 1 << IgnoreWritesBit
	}
	return []byte{cmd, db}
}

// OtherAreaAddress maps an offset inside one of the non-SRAM areas to the
// bus address used with Area == AreaOther.
func OtherAreaAddress(region Region, offset uint32) (uint32, error) {
	switch region {
	case RegionBootROM:
		return offset&BootROMMask | 1<<AreaBootROMBit, nil
	case RegionBankRegs:
		return offset&BankRegMask | 1<<AreaBankRegBit, nil
	case RegionIORegs:
		return offset&IORegMask | IORegBase | 1<<AreaIORegBit, nil
	default:
		return 0, fmt.Errorf("unknown region %d", region)
	}
}

// Region names one of the non-SRAM areas.
type Region int

const (
	RegionBootROM Region = iota
	RegionBankRegs
	RegionIORegs
)

func (r Region) String() string {
	switch r {
	case RegionBootROM:
		return "bootrom"
	case RegionBankRegs:
		return "bankregs"
	case RegionIORegs:
		return "ioregs"
	default:
		return fmt.Sprintf("region(%d)", int(r))
	}
}

// Size returns the number of addressable bytes in the region.
func (r Region) Size() int {
	switch r {
	case RegionBootROM:
		return BootROMMask + 1
	case RegionBankRegs:
		return BankRegMask + 1
	case RegionIORegs:
		return IORegMask + 1
	default:
		return 0
	}
}
