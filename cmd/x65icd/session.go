package main

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/moffa90/go-x65icd/icd"
	"github.com/moffa90/go-x65icd/mpsse"
	"github.com/moffa90/go-x65icd/sim"
)

// open connects to the target and brings the board into the state every
// command starts from: SPI routed to the ICD, flash and FPGA reset released.
func (a *app) open(ctx context.Context) (*icd.Session, error) {
	var opts []icd.Option
	if a.verbose {
		opts = append(opts, icd.WithLogger(glogLogger{}))
	}

	var t icd.Transport
	switch {
	case a.target != nil:
		t = a.target
	case a.sim:
		t = sim.New()
	default:
		ifnum, err := parseInterface(a.iface)
		if err != nil {
			return nil, err
		}
		if a.slow {
			glog.Infoln("slow clock active")
		}
		br, err := mpsse.Open(mpsse.Config{Serial: a.device, Interface: ifnum, Slow: a.slow})
		if err != nil {
			return nil, err
		}
		glog.V(1).Infof("opened %s", br)
		t = br
	}

	s, err := icd.Open(ctx, t, opts...)
	if err != nil {
		if c, ok := t.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("open icd: %w", err)
	}

	if err := s.ReleaseFlashReset(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("release flash reset: %w", err)
	}
	cdone, err := s.ReadCDone(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	glog.V(1).Infof("cdone: %s", level(cdone))

	return s, nil
}

func level(high bool) string {
	if high {
		return "high"
	}
	return "low"
}
