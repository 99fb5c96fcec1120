package binimage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"
)

// PRGHeaderSize is the size of the load address that starts a PRG file.
const PRGHeaderSize = 2

// Parse reads an image file from path.
//
// Example:
//
//	img, err := binimage.Parse("blink.bin", binimage.FormatRaw, 0x1FC000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes in %d segments\n", img.Size(), len(img.Segments))
func Parse(path string, format Format, base uint32) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f, format, base)
}

// ParseReader reads an image from r. base is the load address of a raw
// image; PRG and Intel HEX files carry their own addresses.
func ParseReader(r io.Reader, format Format, base uint32) (*Image, error) {
	var (
		segs []Segment
		err  error
	)

	switch format {
	case FormatRaw:
		segs, err = parseRaw(r, base)
	case FormatPRG:
		segs, err = parsePRG(r)
	case FormatIntelHex:
		segs, err = parseIntelHex(r)
	default:
		return nil, fmt.Errorf("unsupported format %v", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", format, err)
	}

	img := &Image{Format: format, Segments: segs}
	if img.Size() == 0 {
		return nil, fmt.Errorf("%v: image is empty", format)
	}
	return img, nil
}

func parseRaw(r io.Reader, base uint32) ([]Segment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return []Segment{{Address: base, Data: data}}, nil
}

// parsePRG reads a PRG file:
//
//	[LOAD_L][LOAD_H][DATA...]
func parsePRG(r io.Reader) ([]Segment, error) {
	var hdr [PRGHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("failed to read load address: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	addr := uint32(binary.LittleEndian.Uint16(hdr[:]))
	return []Segment{{Address: addr, Data: data}}, nil
}

func parseIntelHex(r io.Reader) ([]Segment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}

	var segs []Segment
	for _, ds := range mem.GetDataSegments() {
		segs = append(segs, Segment{Address: ds.Address, Data: ds.Data})
	}
	return segs, nil
}

// Save writes data, read from addr, to w in the given format.
func Save(w io.Writer, format Format, addr uint32, data []byte) error {
	switch format {
	case FormatRaw:
		_, err := w.Write(data)
		return err

	case FormatPRG:
		if addr > 0xFFFF {
			return fmt.Errorf("prg load address 0x%X does not fit 16 bits", addr)
		}
		var hdr [PRGHeaderSize]byte
		binary.LittleEndian.PutUint16(hdr[:], uint16(addr))
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		_, err := w.Write(data)
		return err

	case FormatIntelHex:
		mem := gohex.NewMemory()
		if err := mem.AddBinary(addr, data); err != nil {
			return fmt.Errorf("ihex: %w", err)
		}
		return mem.DumpIntelHex(w, IntelHexLineLength)
	}
	return fmt.Errorf("unsupported format %v", format)
}

// IntelHexLineLength is the number of data bytes per saved Intel HEX record.
const IntelHexLineLength = 16
