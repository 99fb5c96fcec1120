// Package protocol implements the command framing of the X65 in-circuit
// debugger (ICD) core.
//
// The ICD core sits in the target FPGA next to the CPU and its SRAM bus and is
// reached over SPI. Every command is one chip-select session that starts with
// a command byte; the low bits carry the opcode, the high bits its options.
//
// # Command Byte
//
//	bits 0-3  opcode: 0 status, 1 bus access, 2 CPU control, 3 read trace, 6 force data bus
//	bit  4    bus access: other area (not SRAM) | CPU control: run | trace: dequeue
//	bit  5    bus access: read (0 = write)      | CPU control: step | trace: clear
//	bit  6    bus access: auto-increment        |                   | trace: sample
//
// # Frames
//
//	Bus write:   [CMD][ADDR_L][ADDR_M][ADDR_H][DATA...]
//	Bus read:    [CMD][ADDR_L][ADDR_M][ADDR_H][DUMMY][DATA...]
//	CPU control: [CMD][SIGNALS]
//	Read trace:  [CMD][DUMMY][STATUS][FLAGS][COUNTER][DATA][ADDR_L][ADDR_H]
//	Get status:  [CMD][DUMMY][STATUS]
//
// The Build* functions return the bytes the host clocks out; the Parse*
// functions decode what was clocked back in. Sending them is the job of
// package icd.
//
//	hdr, err := protocol.BuildBusAccessHeader(protocol.BusAccess{
//	    Direction:     protocol.Read,
//	    AutoIncrement: true,
//	    Address:       0x0102AA,
//	    Length:        4,
//	})
//	// hdr == []byte{0x61, 0xAA, 0x02, 0x01, 0x00}
package protocol
