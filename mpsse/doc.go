// Package mpsse implements icd.Transport on an FTDI FT2232H in MPSSE mode.
//
// The ADBUS pins D0..D3 carry SPI (clock, data out, data in); D4..D7 are the
// control group (NORA flash chip select, configuration done, FPGA reset).
// The eight ACBUS pins C0..C7 are the sideband group that routes SPI between
// the ICD and the configuration flash and carries the ICD chip select.
//
// Basic usage:
//
//	br, err := mpsse.Open(mpsse.Config{Interface: 0})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := icd.Open(ctx, br)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close() // also closes the bridge
package mpsse
