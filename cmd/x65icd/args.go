package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/moffa90/go-x65icd/protocol"
)

// parseInterface maps an FTDI interface letter to its channel index.
func parseInterface(s string) (int, error) {
	if len(s) == 1 {
		if c := strings.ToUpper(s)[0]; c >= 'A' && c <= 'D' {
			return int(c - 'A'), nil
		}
	}
	return 0, fmt.Errorf("`%s' is not a valid interface (must be `A', `B', `C', or `D')", s)
}

// area is a target memory area named on the command line.
type area struct {
	name   string
	sram   bool
	region protocol.Region
}

func (a area) size() int {
	if a.sram {
		return protocol.SRAMSize
	}
	return a.region.Size()
}

func parseArea(s string) (area, error) {
	switch strings.ToLower(s) {
	case "sram":
		return area{name: "sram", sram: true}, nil
	case "io", "ioregs":
		return area{name: "io", region: protocol.RegionIORegs}, nil
	case "bank", "bankregs":
		return area{name: "bank", region: protocol.RegionBankRegs}, nil
	case "bootrom", "rom":
		return area{name: "bootrom", region: protocol.RegionBootROM}, nil
	}
	return area{}, fmt.Errorf("unknown area %q (must be sram, io, bank or bootrom)", s)
}

// parseNumber accepts decimal, 0x hex, 0o octal and 0b binary with an
// optional k or M suffix (KiB, MiB).
func parseNumber(s string) (int64, error) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult, s = 1<<10, s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		mult, s = 1<<20, s[:len(s)-1]
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v * mult, nil
}

// parseOffset parses an address inside ar. Negative values count back from
// the end of the area.
func parseOffset(ar area, s string) (uint32, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v += int64(ar.size())
	}
	if v < 0 || v >= int64(ar.size()) {
		return 0, fmt.Errorf("address %s outside %s (size 0x%X)", s, ar.name, ar.size())
	}
	return uint32(v), nil
}

// parseLength parses a byte count that must fit ar from offset.
func parseLength(ar area, offset uint32, s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 || int64(offset)+v > int64(ar.size()) {
		return 0, fmt.Errorf("length %s at 0x%X exceeds %s (size 0x%X)", s, offset, ar.name, ar.size())
	}
	return int(v), nil
}

// parseBytes parses each argument as one byte value.
func parseBytes(args []string) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for _, s := range args {
		v, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q", s)
		}
		out = append(out, byte(v))
	}
	return out, nil
}
