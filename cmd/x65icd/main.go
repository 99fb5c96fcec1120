// Command x65icd drives the in-circuit debugger of an X65 computer through
// an FTDI FT2232H: memory test, CPU control and trace, memory dump and load.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-x65icd/icd"
	"github.com/moffa90/go-x65icd/sim"
)

// app holds the global flags and output streams shared by all subcommands.
type app struct {
	device  string
	iface   string
	verbose bool
	slow    bool
	sim     bool

	out    io.Writer
	errOut io.Writer

	// target, when set, replaces the hardware for --sim runs
	target *sim.Target
}

func main() {
	defer glog.Flush()

	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "x65icd:", err)
		glog.Errorln(err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "x65icd",
		Short:         "ICD tool for the X65 computer over an FTDI USB/SPI interface",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.out == nil {
				a.out = cmd.OutOrStdout()
			}
			if a.errOut == nil {
				a.errOut = cmd.ErrOrStderr()
			}
			if _, err := parseInterface(a.iface); err != nil {
				return err
			}
			if a.verbose {
				_ = flag.Set("logtostderr", "true")
				_ = flag.Set("v", "2")
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.device, "device", "d", "", "FTDI device serial number (default: first FT2232H found)")
	pf.StringVarP(&a.iface, "interface", "I", "A", "FTDI chip interface: A, B, C or D")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log protocol activity to stderr")
	pf.BoolVarP(&a.slow, "slow", "s", false, "use the slow SPI clock")
	pf.BoolVar(&a.sim, "sim", false, "talk to the built-in target simulator instead of hardware")

	root.AddCommand(
		newMemtestCmd(a),
		newStatusCmd(a),
		newCDoneCmd(a),
		newResetCmd(a),
		newStepCmd(a),
		newRunCmd(a),
		newStopCmd(a),
		newRegsCmd(a),
		newTraceCmd(a),
		newDumpCmd(a),
		newPokeCmd(a),
		newLoadCmd(a),
		newSaveCmd(a),
	)

	return root
}

// withSession opens an ICD session for the duration of fn and returns the
// bus to idle afterwards.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *icd.Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := a.open(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, s)
	if cerr := s.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	return err
}
