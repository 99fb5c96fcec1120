// Package trace controls the target CPU and decodes its cycle trace.
//
// The ICD core can hold the CPU in reset, let it run or pulse single clock
// cycles. After every pulse the trace register holds what the CPU did on its
// bus during that cycle: address, data, read/write and the sync, vector pull
// and memory lock lines. Decode turns the register into a Cycle and
// disassembles the opcode on sync cycles; FormatCycle prints it.
//
//	ctl := trace.NewController(session)
//	if err := ctl.Halt(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := ctl.StepInReset(ctx, 10); err != nil {
//	    log.Fatal(err)
//	}
//	cycles, err := ctl.Step(ctx, 32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	color := trace.ColorEnabled(os.Stdout)
//	for i, c := range cycles {
//	    fmt.Printf("Step #%3d:  %s\n", i, trace.FormatCycle(c, color))
//	}
//
// ReadRegisters recovers PC, SP, P, A, X and Y of a CPU stopped on an
// instruction boundary by forcing a few instructions onto its data bus.
package trace
