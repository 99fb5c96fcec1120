package memtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-x65icd/protocol"
)

// Size2MB is the full target SRAM.
const Size2MB = protocol.SRAMSize

// Bus is the memory access the test runs over; *icd.Session implements it.
type Bus interface {
	BusRead(ctx context.Context, addr uint32, n int) ([]byte, error)
	BusWrite(ctx context.Context, addr uint32, data []byte) error
}

// Report is the outcome of one memory test.
type Report struct {
	Seed      uint32
	Start     uint32
	ByteCount int
	BlockSize int

	// Blocks is the number of blocks tested; the last one may be partial
	Blocks int

	// Errors is the number of mismatching blocks
	Errors int

	// FailingBlocks lists the index, relative to Start, of every mismatching block
	FailingBlocks []int

	Elapsed time.Duration
}

// Passed reports whether every block verified.
func (r *Report) Passed() bool {
	return r.Errors == 0
}

// BlockAddress returns the first address of block i.
func (r *Report) BlockAddress(i int) uint32 {
	return r.Start + uint32(i*r.BlockSize)
}

func (r *Report) String() string {
	return fmt.Sprintf("memtest 0x%06X..0x%06X seed 0x%08X: %d blocks, %d errors",
		r.Start, r.Start+uint32(r.ByteCount)-1, r.Seed, r.Blocks, r.Errors)
}

// Run writes a pseudo-random pattern derived from seed over count bytes at
// start, then re-seeds, reads everything back and compares block by block.
//
// A mismatching block counts as one error regardless of how many of its
// bytes differ. Mismatches never stop the test; bus errors and cancellation
// do, and are returned together with the partial report.
// A count that is not a multiple of the block size ends in a partial block.
//
// Example:
//
//	report, err := memtest.Run(ctx, session, 123, 0, memtest.Size2MB)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(report)
func Run(ctx context.Context, bus Bus, seed uint32, start uint32, count int, opts ...Option) (*Report, error) {
	if bus == nil {
		return nil, errors.New("bus cannot be nil")
	}
	if count <= 0 {
		return nil, fmt.Errorf("byte count must be positive, got %d", count)
	}
	if uint64(start)+uint64(count) > protocol.MaxAddress+1 {
		return nil, fmt.Errorf("range 0x%X+%d exceeds the 24-bit address space", start, count)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &tester{
		bus:        bus,
		config:     cfg,
		pageBlocks: (cfg.PageSize + cfg.BlockSize - 1) / cfg.BlockSize,
		startTime:  time.Now(),
		report: &Report{
			Seed:      seed,
			Start:     start,
			ByteCount: count,
			BlockSize: cfg.BlockSize,
			Blocks:    (count + cfg.BlockSize - 1) / cfg.BlockSize,
		},
	}

	t.logInfo("memtest start",
		"from", fmt.Sprintf("0x%06X", start),
		"to", fmt.Sprintf("0x%06X", start+uint32(count)-1),
		"seed", fmt.Sprintf("0x%08X", seed),
	)

	if err := t.writePass(ctx); err != nil {
		return t.finish(), fmt.Errorf("write pass: %w", err)
	}
	if err := t.verifyPass(ctx); err != nil {
		return t.finish(), fmt.Errorf("verify pass: %w", err)
	}

	r := t.finish()
	t.reportProgress(PhaseComplete, r.Blocks)
	t.logInfo("memtest done", "errors", r.Errors, "elapsed", r.Elapsed.String())
	return r, nil
}

type tester struct {
	bus        Bus
	config     Config
	pageBlocks int
	startTime  time.Time
	report     *Report
}

func (t *tester) writePass(ctx context.Context) error {
	gen := NewXorShift32(t.report.Seed)
	buf := make([]byte, t.config.BlockSize)

	for b := 0; b < t.report.Blocks; b++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		if b%t.pageBlocks == 0 {
			t.reportProgress(PhaseWriting, b)
		}

		block := buf[:t.blockLen(b)]
		gen.Fill(block)
		if err := t.bus.BusWrite(ctx, t.report.BlockAddress(b), block); err != nil {
			return fmt.Errorf("block %d: %w", b, err)
		}
	}
	return nil
}

func (t *tester) verifyPass(ctx context.Context) error {
	gen := NewXorShift32(t.report.Seed)
	want := make([]byte, t.config.BlockSize)

	for b := 0; b < t.report.Blocks; b++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		if b%t.pageBlocks == 0 {
			t.reportProgress(PhaseVerifying, b)
		}

		n := t.blockLen(b)
		addr := t.report.BlockAddress(b)
		got, err := t.bus.BusRead(ctx, addr, n)
		if err != nil {
			return fmt.Errorf("block %d: %w", b, err)
		}

		gen.Fill(want[:n])
		if !bytes.Equal(got, want[:n]) {
			t.report.Errors++
			t.report.FailingBlocks = append(t.report.FailingBlocks, b)
			t.logError("block mismatch",
				"block", b,
				"from", fmt.Sprintf("0x%06X", addr),
				"to", fmt.Sprintf("0x%06X", addr+uint32(n)-1),
			)
		}
	}
	return nil
}

// blockLen returns the length of block b; only the last block can be short.
func (t *tester) blockLen(b int) int {
	return min(t.config.BlockSize, t.report.ByteCount-b*t.config.BlockSize)
}

func (t *tester) finish() *Report {
	t.report.Elapsed = time.Since(t.startTime)
	return t.report
}

// reportProgress calls the progress callback and logs the page being tested.
func (t *tester) reportProgress(phase string, block int) {
	total := t.report.Blocks
	done := block
	switch phase {
	case PhaseVerifying:
		done += total
	case PhaseComplete:
		done = 2 * total
	}

	pageBytes := uint32(t.pageBlocks * t.config.BlockSize)
	addr := t.report.BlockAddress(min(block, total))
	page := int(addr / pageBytes)

	if phase != PhaseComplete {
		t.logDebug(phase+" page", "page", page, "address", fmt.Sprintf("0x%06X", addr))
	}

	if t.config.ProgressCallback == nil {
		return
	}
	t.config.ProgressCallback(Progress{
		Phase:       phase,
		Page:        page,
		Address:     addr,
		Block:       block,
		TotalBlocks: total,
		Errors:      t.report.Errors,
		Percentage:  float64(done) / float64(2*total) * 100,
		ElapsedTime: time.Since(t.startTime),
	})
}

// logDebug logs a debug message if logger is configured.
func (t *tester) logDebug(msg string, keysAndValues ...interface{}) {
	if t.config.Logger != nil {
		t.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is configured.
func (t *tester) logInfo(msg string, keysAndValues ...interface{}) {
	if t.config.Logger != nil {
		t.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is configured.
func (t *tester) logError(msg string, keysAndValues ...interface{}) {
	if t.config.Logger != nil {
		t.config.Logger.Error(msg, keysAndValues...)
	}
}
