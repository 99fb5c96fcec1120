// Package disasm holds the opcode table of the WDC 65C02 used to annotate
// captured opcode fetch cycles.
//
// Each entry is "MNEMONIC mode", e.g. "LDA #" or "BBR0 r", and Unknown ("?")
// for opcodes the CPU leaves undefined. The table is read through Lookup,
// Mnemonic and Mode; Table returns a copy.
//
//	if text, ok := disasm.Lookup(0xA9); ok {
//	    fmt.Println(text) // LDA #
//	}
package disasm
