// Package binimage reads and writes X65 memory images.
//
// # Formats
//
// Raw binaries carry no address; the caller supplies the load address.
//
// PRG files start with the 16-bit little-endian load address, typically
// 0x0801:
//
//	[LOAD_L][LOAD_H][DATA...]
//
// Intel HEX files carry addresses per record and may hold several
// disjoint segments; extended linear address records reach the full
// 24-bit SRAM range.
//
// # Usage
//
//	img, err := binimage.Parse("hello.prg", binimage.DetectFormat("hello.prg"), 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := img.WriteTo(ctx, session, nil); err != nil {
//	    log.Fatal(err)
//	}
//
// Save a memory range:
//
//	data, _ := session.BusRead(ctx, 0x0801, 256)
//	err := binimage.Save(f, binimage.FormatPRG, 0x0801, data)
package binimage
