package binimage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the on-disk layout of a memory image.
type Format int

const (
	// FormatRaw is a plain binary placed at a caller-chosen address
	FormatRaw Format = iota

	// FormatPRG is a binary preceded by its 2-byte little-endian load address
	FormatPRG

	// FormatIntelHex is an Intel HEX text file
	FormatIntelHex
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatPRG:
		return "prg"
	case FormatIntelHex:
		return "ihex"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// DetectFormat guesses the format from the file extension. Unknown
// extensions are treated as raw binaries.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".prg":
		return FormatPRG
	case ".hex", ".ihx", ".ihex":
		return FormatIntelHex
	default:
		return FormatRaw
	}
}

// ParseFormat parses a format name as printed by Format.String. An empty
// name yields ok == false.
func ParseFormat(name string) (Format, bool, error) {
	switch strings.ToLower(name) {
	case "":
		return FormatRaw, false, nil
	case "raw", "bin":
		return FormatRaw, true, nil
	case "prg":
		return FormatPRG, true, nil
	case "ihex", "hex":
		return FormatIntelHex, true, nil
	}
	return FormatRaw, false, fmt.Errorf("unknown image format %q", name)
}

// Segment is a contiguous run of bytes at a target address.
type Segment struct {
	// Address is the 24-bit SRAM address of the first byte
	Address uint32

	// Data is the segment payload
	Data []byte
}

// End returns the address one past the last byte of the segment.
func (s Segment) End() uint32 {
	return s.Address + uint32(len(s.Data))
}

// Image is a parsed memory image.
type Image struct {
	// Format is the layout the image was read from
	Format Format

	// Segments are the data runs in file order
	Segments []Segment
}

// Size returns the total number of payload bytes.
func (img *Image) Size() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}

// Writer is the part of the ICD session used to store an image.
type Writer interface {
	BusWrite(ctx context.Context, addr uint32, data []byte) error
}

// WriteTo stores every segment through w, in order. The callback, if not
// nil, is called after each segment.
//
// Example:
//
//	img, err := binimage.Parse("hello.prg", binimage.FormatPRG, 0)
//	if err != nil {
//	    return err
//	}
//	err = img.WriteTo(ctx, session, nil)
func (img *Image) WriteTo(ctx context.Context, w Writer, done func(s Segment)) error {
	for i, s := range img.Segments {
		if err := w.BusWrite(ctx, s.Address, s.Data); err != nil {
			return fmt.Errorf("segment %d at 0x%06X: %w", i, s.Address, err)
		}
		if done != nil {
			done(s)
		}
	}
	return nil
}
