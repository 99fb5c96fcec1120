// Package sim models the X65 ICD core in process.
//
// A Target stands in for the USB bridge and the FPGA: it accepts the same
// sideband and SPI traffic as the hardware, decodes every chip-select session
// and keeps 2 MiB of SRAM, the boot ROM, the bank and IO registers, the CPU
// control latch and the trace register with its buffer.
//
//	t := sim.New()
//	t.Feed(protocol.TraceFrame{Flags: 0x39, Data: 0xA9, AddrLow: 0x00, AddrHigh: 0x02})
//	s, err := icd.Open(ctx, t)
//
// Faults are injected with FailExchange and FailSideband; Peek and Poke reach
// SRAM behind the ICD's back.
package sim
