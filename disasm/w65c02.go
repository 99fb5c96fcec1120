package disasm

// Addressing mode notation used in the mnemonic table:
//
//	#       immediate
//	zp      zero page
//	zp,X    zero page indexed
//	(zp)    zero page indirect
//	(zp,X)  zero page indexed indirect
//	(zp),Y  zero page indirect indexed
//	a       absolute
//	a,X     absolute indexed
//	(a)     absolute indirect
//	(a,X)   absolute indexed indirect
//	r       program counter relative
//	i       implied
//	s       stack
//	A       accumulator
//
// Undefined opcodes are Unknown.

// Unknown is the table entry of an undefined opcode.
const Unknown = "?"

// w65c02 maps each opcode byte of the WDC 65C02 to its mnemonic and
// addressing mode.
var w65c02 = [256]string{
	// 0x00
	"BRK s", "ORA (zp,X)", "?", "?", "TSB zp", "ORA zp", "ASL zp", "RMB0 zp",
	"PHP s", "ORA #", "ASL A", "?", "TSB a", "ORA a", "ASL a", "BBR0 r",
	// 0x10
	"BPL r", "ORA (zp),Y", "ORA (zp)", "?", "TRB zp", "ORA zp,X", "ASL zp,X", "RMB1 zp",
	"CLC i", "ORA a,Y", "INC A", "?", "TRB a", "ORA a,X", "ASL a,X", "BBR1 r",
	// 0x20
	"JSR a", "AND (zp,X)", "?", "?", "BIT zp", "AND zp", "ROL zp", "RMB2 zp",
	"PLP s", "AND #", "ROL A", "?", "BIT a", "AND a", "ROL a", "BBR2 r",
	// 0x30
	"BMI r", "AND (zp),Y", "AND (zp)", "?", "BIT zp,X", "AND zp,X", "ROL zp,X", "RMB3 zp",
	"SEC i", "AND a,Y", "DEC A", "?", "BIT a,X", "AND a,X", "ROL a,X", "BBR3 r",
	// 0x40
	"RTI s", "EOR (zp,X)", "?", "?", "?", "EOR zp", "LSR zp", "RMB4 zp",
	"PHA s", "EOR #", "LSR A", "?", "JMP a", "EOR a", "LSR a", "BBR4 r",
	// 0x50
	"BVC r", "EOR (zp),Y", "EOR (zp)", "?", "?", "EOR zp,X", "LSR zp,X", "RMB5 zp",
	"CLI i", "EOR a,Y", "PHY s", "?", "?", "EOR a,X", "LSR a,X", "BBR5 r",
	// 0x60
	"RTS s", "ADC (zp,X)", "?", "?", "STZ zp", "ADC zp", "ROR zp", "RMB6 zp",
	"PLA s", "ADC #", "ROR A", "?", "JMP (a)", "ADC a", "ROR a", "BBR6 r",
	// 0x70
	"BVS r", "ADC (zp),Y", "ADC (zp)", "?", "STZ zp,X", "ADC zp,X", "ROR zp,X", "RMB7 zp",
	"SEI i", "ADC a,Y", "PLY s", "?", "JMP (a,X)", "ADC a,X", "ROR a,X", "BBR7 r",
	// 0x80
	"BRA r", "STA (zp,X)", "?", "?", "STY zp", "STA zp", "STX zp", "SMB0 zp",
	"DEY i", "BIT #", "TXA i", "?", "STY a", "STA a", "STX a", "BBS0 r",
	// 0x90
	"BCC r", "STA (zp),Y", "STA (zp)", "?", "STY zp,X", "STA zp,X", "STX zp,Y", "SMB1 zp",
	"TYA i", "STA a,Y", "TXS i", "?", "STZ a", "STA a,X", "STZ a,X", "BBS1 r",
	// 0xA0
	"LDY #", "LDA (zp,X)", "LDX #", "?", "LDY zp", "LDA zp", "LDX zp", "SMB2 zp",
	"TAY i", "LDA #", "TAX i", "?", "LDY a", "LDA a", "LDX a", "BBS2 r",
	// 0xB0
	"BCS r", "LDA (zp),Y", "LDA (zp)", "?", "LDY zp,X", "LDA zp,X", "LDX zp,Y", "SMB3 zp",
	"CLV i", "LDA a,Y", "TSX i", "?", "LDY a,X", "LDA a,X", "LDX a,Y", "BBS3 r",
	// 0xC0
	"CPY #", "CMP (zp,X)", "?", "?", "CPY zp", "CMP zp", "DEC zp", "SMB4 zp",
	"INY i", "CMP #", "DEX i", "WAI i", "CPY a", "CMP a", "DEC a", "BBS4 r",
	// 0xD0
	"BNE r", "CMP (zp),Y", "CMP (zp)", "?", "?", "CMP zp,X", "DEC zp,X", "SMB5 zp",
	"CLD i", "CMP a,Y", "PHX s", "STP i", "?", "CMP a,X", "DEC a,X", "BBS5 r",
	// 0xE0
	"CPX #", "SBC (zp,X)", "?", "?", "CPX zp", "SBC zp", "INC zp", "SMB6 zp",
	"INX i", "SBC #", "NOP i", "?", "CPX a", "SBC a", "INC a", "BBS6 r",
	// 0xF0
	"BEQ r", "SBC (zp),Y", "SBC (zp)", "?", "?", "SBC zp,X", "INC zp,X", "SMB7 zp",
	"SED i", "SBC a,Y", "PLX s", "?", "?", "SBC a,X", "INC a,X", "BBS7 r",
}

// Table returns a copy of the whole opcode table.
func Table() [256]string {
	return w65c02
}

// Lookup returns the table entry for op and whether the opcode is defined.
func Lookup(op byte) (string, bool) {
	m := w65c02[op]
	return m, m != Unknown
}

// Mnemonic returns the instruction name of op without its addressing mode,
// or Unknown.
func Mnemonic(op byte) string {
	m := w65c02[op]
	for i := 0; i < len(m); i++ {
		if m[i] == ' ' {
			return m[:i]
		}
	}
	return m
}

// Mode returns the addressing mode notation of op, or "" for undefined opcodes.
func Mode(op byte) string {
	m := w65c02[op]
	for i := 0; i < len(m); i++ {
		if m[i] == ' ' {
			return m[i+1:]
		}
	}
	return ""
}

// OperandSize returns the number of operand bytes that follow opcode op.
// Undefined opcodes report 0.
func OperandSize(op byte) int {
	switch Mode(op) {
	case "", "i", "s", "A":
		return 0
	case "a", "a,X", "a,Y", "(a)", "(a,X)":
		return 2
	}
	// BBRx/BBSx carry a zero page address and a displacement
	if op&0x0F == 0x0F {
		return 2
	}
	return 1
}
