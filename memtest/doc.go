// Package memtest runs a self-verifying pseudo-random test of the target SRAM.
//
// The pattern comes from a 32-bit xorshift generator. The write pass seeds
// it and writes the stream block by block; the verify pass seeds it again
// with the same value and compares what it reads against the regenerated
// stream. Nothing written is kept on the host, and the same seed and range
// always produce the same content.
//
//	report, err := memtest.Run(ctx, session, 123, 0, memtest.Size2MB,
//	    memtest.WithProgressCallback(printProgress),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !report.Passed() {
//	    for _, b := range report.FailingBlocks {
//	        fmt.Printf("bad block at 0x%06X\n", report.BlockAddress(b))
//	    }
//	}
package memtest
