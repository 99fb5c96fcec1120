package trace

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	ansiReset = "\x1b[0m"
	ansiCyan  = "\x1b[36m"
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[2m"
)

// FormatCycle renders c as one line:
//
//	V:* O:-  CA:0200  CD:a9  ctr:01  sta:39:r--S  LDA #
//
// The sta field spells the flags as r/W (read or write), v (vector pull),
// L (memory lock) and S (sync), with '-' for inactive lines.
// With color set, the instruction, write cycles and invalid reads are
// highlighted with ANSI escapes.
func FormatCycle(c Cycle, color bool) string {
	var b strings.Builder

	if color && !c.Valid {
		b.WriteString(ansiDim)
	}

	fmt.Fprintf(&b, "V:%c O:%c  CA:%04x  CD:%02x  ctr:%02x  sta:%02x:",
		mark(c.Valid, '*'), mark(c.Overflow, '*'), c.Address, c.Data, c.Counter, c.Flags)

	if c.Read {
		b.WriteByte('r')
	} else if color {
		b.WriteString(ansiRed + "W" + ansiReset)
	} else {
		b.WriteByte('W')
	}
	b.WriteByte(mark(c.VectorPull, 'v'))
	b.WriteByte(mark(c.MemLock, 'L'))
	b.WriteByte(mark(c.Sync, 'S'))

	if c.Instruction != "" {
		b.WriteString("  ")
		if color {
			b.WriteString(ansiCyan + c.Instruction + ansiReset)
		} else {
			b.WriteString(c.Instruction)
		}
	}

	if color && !c.Valid {
		b.WriteString(ansiReset)
	}
	return b.String()
}

// ColorEnabled reports whether f is a terminal that should get colored output.
func ColorEnabled(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func mark(set bool, c byte) byte {
	if set {
		return c
	}
	return '-'
}
