package protocol

import (
	"fmt"
)

// ParseStatusHeader extracts the status byte from an exchanged trace or
// status header.
//
// Header structure (as received):
//
//	[ -- ][ -- ][STATUS]
func ParseStatusHeader(rx []byte) (Status, error) {
	if len(rx) < StatusHeaderSize {
		return 0, fmt.Errorf("status header too short: got %d bytes, expected %d", len(rx), StatusHeaderSize)
	}
	return Status(rx[StatusByteOffset]), nil
}

// ParseTraceFrame decodes the trace payload read after a trace header.
//
// Data format (TracePayloadSize bytes):
//
//	[STATUS][COUNTER][DATA][ADDR_L][ADDR_H]
func ParseTraceFrame(data []byte) (TraceFrame, error) {
	if len(data) != TracePayloadSize {
		return TraceFrame{}, fmt.Errorf("invalid trace frame length: got %d bytes, expected %d", len(data), TracePayloadSize)
	}

	return TraceFrame{
		Flags:    data[0],
		Counter:  data[1],
		Data:     data[2],
		AddrLow:  data[3],
		AddrHigh: data[4],
	}, nil
}

// ParseCommand decodes the opcode and option bits of a command byte.
// Used by target-side simulators and by diagnostics.
func ParseCommand(cmd byte) (opcode byte, options byte) {
	return cmd & OpcodeMask, cmd &^ OpcodeMask
}

// ParseBusAccessCommand decodes a bus access command byte.
func ParseBusAccessCommand(cmd byte) (BusAccess, error) {
	if cmd&OpcodeMask != CmdBusAccess {
		return BusAccess{}, fmt.Errorf("not a bus access command: 0x%02X", cmd)
	}
	acc := BusAccess{
		AutoIncrement: cmd&(1<<BusAutoIncBit) != 0,
	}
	if cmd&(1<<BusReadBit) != 0 {
		acc.Direction = Read
	}
	if cmd&(1<<BusOtherAreaBit) != 0 {
		acc.Area = AreaOther
	}
	return acc, nil
}

// ParseCPUControlCmd decodes a CPU control frame.
func ParseCPUControlCmd(frame []byte) (CPUControl, error) {
	if len(frame) != CPUControlFrameSize {
		return CPUControl{}, fmt.Errorf("invalid CPU control frame length: got %d bytes, expected %d", len(frame), CPUControlFrameSize)
	}
	if frame[0]&OpcodeMask != CmdCPUControl {
		return CPUControl{}, fmt.Errorf("not a CPU control command: 0x%02X", frame[0])
	}

	sig := frame[1]
	return CPUControl{
		Run:        frame[0]&(1<<CPURunBit) != 0,
		Step:       frame[0]&(1<<CPUStepBit) != 0,
		Reset:      sig&SignalReset != 0,
		ForceIRQ:   sig&SignalForceIRQ != 0,
		ForceNMI:   sig&SignalForceNMI != 0,
		ForceAbort: sig&SignalForceAbort != 0,
		BlockIRQ:   sig&SignalBlockIRQ != 0,
		BlockNMI:   sig&SignalBlockNMI != 0,
		BlockAbort: sig&SignalBlockAbort != 0,
	}, nil
}

// ParseTraceRequest decodes the option bits of a read trace command byte.
func ParseTraceRequest(cmd byte) TraceRequest {
	return TraceRequest{
		Dequeue: cmd&(1<<TraceDequeueBit) != 0,
		Clear:   cmd&(1<<TraceClearBit) != 0,
		Sample:  cmd&(1<<TraceSampleBit) != 0,
	}
}
