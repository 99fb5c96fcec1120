package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"zappem.net/pub/debug/xxd"

	"github.com/moffa90/go-x65icd/binimage"
	"github.com/moffa90/go-x65icd/icd"
	"github.com/moffa90/go-x65icd/memtest"
	"github.com/moffa90/go-x65icd/protocol"
	"github.com/moffa90/go-x65icd/trace"
)

// resetCycles is the number of clocks given to the CPU with reset held.
const resetCycles = 10

func newMemtestCmd(a *app) *cobra.Command {
	var (
		seed        uint32
		start, size string
		blockSize   int
	)

	cmd := &cobra.Command{
		Use:   "memtest",
		Short: "Write a pseudo-random pattern to SRAM and verify it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sram := area{name: "sram", sram: true}
			addr, err := parseOffset(sram, start)
			if err != nil {
				return err
			}
			n, err := parseLength(sram, addr, size)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint32(time.Now().Unix())
			}

			opts := []memtest.Option{memtest.WithBlockSize(blockSize)}
			progress := isTerminal(a.errOut)
			if progress {
				opts = append(opts, memtest.WithProgressCallback(func(p memtest.Progress) {
					fmt.Fprintf(a.errOut, "\r%-9s page %4d  %5.1f%%  errors %d", p.Phase, p.Page, p.Percentage, p.Errors)
				}))
			}
			if a.verbose {
				opts = append(opts, memtest.WithLogger(glogLogger{}))
			}

			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				fmt.Fprintf(a.out, "SRAM memtest seed=%d start=0x%06X size=%d\n", seed, addr, n)

				report, err := memtest.Run(ctx, s, seed, addr, n, opts...)
				if progress {
					fmt.Fprintln(a.errOut)
				}
				if report != nil {
					printReport(a.out, report)
				}
				return err
			})
		},
	}

	f := cmd.Flags()
	f.Uint32Var(&seed, "seed", 0, "pattern seed (default: current time)")
	f.StringVar(&start, "start", "0", "first SRAM address")
	f.StringVar(&size, "size", "2M", "number of bytes to test")
	f.IntVar(&blockSize, "block", memtest.DefaultBlockSize, "bytes per transfer and comparison")
	return cmd
}

func printReport(w io.Writer, r *memtest.Report) {
	for _, b := range r.FailingBlocks {
		fmt.Fprintf(w, "  block %6d at 0x%06X: mismatch\n", b, r.BlockAddress(b))
	}
	fmt.Fprintf(w, "%s in %v\n", r, r.Elapsed.Round(time.Millisecond))
	if r.Passed() {
		fmt.Fprintln(w, "PASSED")
	} else {
		fmt.Fprintln(w, "FAILED")
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the ICD status, sideband lines and bank registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				st, err := s.GetStatus(ctx)
				if err != nil {
					return err
				}
				sb, err := s.Sideband(ctx)
				if err != nil {
					return err
				}
				banks, err := s.ReadBankRegs(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(a.out, "status:   0x%02X (%s)\n", byte(st), st)
				fmt.Fprintf(a.out, "sideband: 0x%02X\n", sb)
				printBanks(a.out, banks)
				return nil
			})
		},
	}
}

func printBanks(w io.Writer, banks []byte) {
	fmt.Fprintf(w, "Active banks: RAMBANK=%02x  ROMBANK=%02x\n", banks[0], banks[1])
}

func newCDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cdone",
		Short: "Show the FPGA configuration-done line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				v, err := s.ReadCDone(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "cdone: %s\n", level(v))
				return nil
			})
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Stop the CPU, hold it in reset and clock it through the reset sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				ctl := a.controller(s)

				fmt.Fprintln(a.out, "CPU Stop & Reset")
				if err := ctl.Halt(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "CPU Step while in Reset")
				if _, err := ctl.StepInReset(ctx, resetCycles); err != nil {
					return err
				}

				banks, err := s.ReadBankRegs(ctx)
				if err != nil {
					return err
				}
				printBanks(a.out, banks)
				return nil
			})
		},
	}
}

func newStepCmd(a *app) *cobra.Command {
	var (
		n            int
		inReset      bool
		instructions bool
	)

	cmd := &cobra.Command{
		Use:   "step",
		Short: "Step the CPU and print the trace of every cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("step count must be positive, got %d", n)
			}
			if inReset && instructions {
				return fmt.Errorf("--in-reset and --instructions are mutually exclusive")
			}

			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				ctl := a.controller(s, trace.WithCycleCallback(a.printCycle("Step", false)))
				var err error
				switch {
				case inReset:
					fmt.Fprintln(a.out, "CPU Step while in Reset:")
					_, err = ctl.StepInReset(ctx, n)
				case instructions:
					fmt.Fprintln(a.out, "CPU Step:")
					_, err = ctl.StepInstructions(ctx, n)
				default:
					fmt.Fprintln(a.out, "CPU Step:")
					_, err = ctl.Step(ctx, n)
				}
				return err
			})
		},
	}

	f := cmd.Flags()
	f.IntVarP(&n, "count", "n", 32, "number of cycles (or instructions) to step")
	f.BoolVar(&inReset, "in-reset", false, "keep reset asserted while stepping")
	f.BoolVar(&instructions, "instructions", false, "count opcode fetches instead of cycles")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Release reset and let the CPU run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				banks, err := s.ReadBankRegs(ctx)
				if err != nil {
					return err
				}
				printBanks(a.out, banks)
				fmt.Fprintln(a.out, "CPU Run")
				return a.controller(s).Run(ctx)
			})
		},
	}
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the CPU without asserting reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				fmt.Fprintln(a.out, "CPU Stop")
				return a.controller(s).Stop(ctx)
			})
		},
	}
}

func newRegsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regs",
		Short: "Read the registers of the stopped CPU",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				regs, err := a.controller(s).ReadRegisters(ctx)
				if err != nil {
					return err
				}

				banks, err := s.ReadBankRegs(ctx)
				if err != nil {
					return err
				}
				printBanks(a.out, banks)
				fmt.Fprintln(a.out, regs)
				return nil
			})
		},
	}
}

func newTraceCmd(a *app) *cobra.Command {
	var (
		limit    int
		clearBuf bool
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Stop the CPU and print the trace buffer, oldest cycle first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				ctl := a.controller(s, trace.WithCycleCallback(a.printCycle("Trace", true)))
				if err := ctl.Stop(ctx); err != nil {
					return err
				}
				cycles, err := ctl.Drain(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%d cycles\n", len(cycles))
				if clearBuf {
					return ctl.ClearBuffer(ctx)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", protocol.TraceBufferDepth, "maximum number of cycles to read")
	f.BoolVar(&clearBuf, "clear", false, "empty the trace buffer afterwards")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump AREA ADDR [LENGTH]",
		Short: "Hex dump target memory (AREA is sram, io, bank or bootrom)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := parseArea(args[0])
			if err != nil {
				return err
			}
			addr, err := parseOffset(ar, args[1])
			if err != nil {
				return err
			}
			length := "256"
			if len(args) == 3 {
				length = args[2]
			} else if rest := ar.size() - int(addr); rest < 256 {
				length = fmt.Sprint(rest)
			}
			n, err := parseLength(ar, addr, length)
			if err != nil {
				return err
			}

			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				data, err := readArea(ctx, s, ar, addr, n)
				if err != nil {
					return err
				}
				return hexDump(a.out, int(addr), data)
			})
		},
	}
}

func newPokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "poke AREA ADDR BYTE...",
		Short: "Write bytes to target memory",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := parseArea(args[0])
			if err != nil {
				return err
			}
			addr, err := parseOffset(ar, args[1])
			if err != nil {
				return err
			}
			data, err := parseBytes(args[2:])
			if err != nil {
				return err
			}
			if int(addr)+len(data) > ar.size() {
				return fmt.Errorf("%d bytes at 0x%X exceed %s", len(data), addr, ar.name)
			}

			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				fmt.Fprintf(a.out, "POKE area:%s addr:0x%X data:% x\n", ar.name, addr, data)
				return writeArea(ctx, s, ar, addr, data)
			})
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	var format, addrFlag string

	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Load a raw, PRG or Intel HEX file into SRAM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, ok, err := binimage.ParseFormat(format)
			if err != nil {
				return err
			}
			if !ok {
				f = binimage.DetectFormat(path)
			}
			base, err := parseOffset(area{name: "sram", sram: true}, addrFlag)
			if err != nil {
				return err
			}

			img, err := binimage.Parse(path, f, base)
			if err != nil {
				return err
			}
			for _, seg := range img.Segments {
				if int(seg.End()) > memtest.Size2MB {
					return fmt.Errorf("segment 0x%06X..0x%06X exceeds sram", seg.Address, seg.End())
				}
			}

			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				banks, err := s.ReadBankRegs(ctx)
				if err != nil {
					return err
				}
				printBanks(a.out, banks)

				err = img.WriteTo(ctx, s, func(seg binimage.Segment) {
					fmt.Fprintf(a.out, "Stored %d B at 0x%06X.\n", len(seg.Data), seg.Address)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Loaded %d B from %s (%v).\n", img.Size(), path, img.Format)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", "", "file format: raw, prg or ihex (default: from extension)")
	f.StringVar(&addrFlag, "addr", "0", "load address of a raw file; negative counts from the end of sram")
	return cmd
}

func newSaveCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "save FILE AREA ADDR LENGTH",
		Short: "Save target memory to a raw, PRG or Intel HEX file",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, ok, err := binimage.ParseFormat(format)
			if err != nil {
				return err
			}
			if !ok {
				f = binimage.DetectFormat(path)
			}
			ar, err := parseArea(args[1])
			if err != nil {
				return err
			}
			addr, err := parseOffset(ar, args[2])
			if err != nil {
				return err
			}
			n, err := parseLength(ar, addr, args[3])
			if err != nil {
				return err
			}

			return a.withSession(cmd, func(ctx context.Context, s *icd.Session) error {
				data, err := readArea(ctx, s, ar, addr, n)
				if err != nil {
					return err
				}

				out, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := binimage.Save(out, f, addr, data); err != nil {
					out.Close()
					return err
				}
				if err := out.Close(); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Saved %d B to %s (%v).\n", len(data), path, f)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "file format: raw, prg or ihex (default: from extension)")
	return cmd
}

// hexDump renders data through xxd.Print into w. The dump goes to os.Stdout,
// so stdout is pointed at a pipe for the duration of the call.
func hexDump(w io.Writer, base int, data []byte) error {
	if f, ok := w.(*os.File); ok && f == os.Stdout {
		xxd.Print(base, data)
		return nil
	}

	r, pw, err := os.Pipe()
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(w, r)
		r.Close()
		done <- err
	}()

	stdout := os.Stdout
	os.Stdout = pw
	xxd.Print(base, data)
	os.Stdout = stdout

	err = pw.Close()
	if cerr := <-done; err == nil {
		err = cerr
	}
	return err
}

func readArea(ctx context.Context, s *icd.Session, ar area, addr uint32, n int) ([]byte, error) {
	if ar.sram {
		return s.BusRead(ctx, addr, n)
	}
	return s.ReadArea(ctx, ar.region, addr, n)
}

func writeArea(ctx context.Context, s *icd.Session, ar area, addr uint32, data []byte) error {
	if ar.sram {
		return s.BusWrite(ctx, addr, data)
	}
	return s.WriteArea(ctx, ar.region, addr, data)
}

func (a *app) controller(s *icd.Session, opts ...trace.Option) *trace.Controller {
	if a.verbose {
		opts = append(opts, trace.WithLogger(glogLogger{}))
	}
	return trace.NewController(s, opts...)
}

// printCycle returns a callback printing each cycle as one numbered line.
// With validOnly set, reads of an empty trace register are skipped.
func (a *app) printCycle(label string, validOnly bool) trace.CycleCallback {
	color := isTerminal(a.out)
	return func(i int, c trace.Cycle) {
		if validOnly && !c.Valid {
			return
		}
		fmt.Fprintf(a.out, "%s #%3d:  %s\n", label, i, trace.FormatCycle(c, color))
		if c.Overflow {
			glog.V(1).Infof("%s #%d: cycles lost before this one", label, i)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && trace.ColorEnabled(f)
}
