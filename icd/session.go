package icd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/moffa90/go-x65icd/protocol"
)

// BusSelector names the peripheral that currently owns the shared SPI lines.
type BusSelector int

const (
	// Idle: SPI routed to the ICD, ICD deselected
	Idle BusSelector = iota

	// Flash: SPI routed to the configuration flash
	Flash

	// ICDActive: ICD chip select asserted
	ICDActive
)

func (b BusSelector) String() string {
	switch b {
	case Idle:
		return "idle"
	case Flash:
		return "flash"
	case ICDActive:
		return "icd"
	default:
		return "unknown"
	}
}

// Session owns a Transport and the bus routing state of one target.
// Every ICD command runs inside a select/deselect bracket; the bracket is the
// only mutual exclusion, so a Session must be used from one goroutine.
//
// A transport failure inside a bracket breaks the session: the target's
// address register is left in an unknown state and every later call returns
// ErrSessionBroken.
type Session struct {
	t      Transport
	config Config
	sel    BusSelector
	broken bool
}

// Open puts the bus into the idle state and returns a session on t.
//
// Example:
//
//	s, err := icd.Open(ctx, transport, icd.WithLogger(myLogger))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
func Open(ctx context.Context, t Transport, opts ...Option) (*Session, error) {
	if t == nil {
		return nil, errors.New("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{t: t, config: cfg}
	if err := s.Idle(ctx); err != nil {
		return nil, fmt.Errorf("go idle: %w", err)
	}

	s.logDebug("session open", "max_request", cfg.MaxRequestSize)
	return s, nil
}

// Close returns the bus to idle and closes the transport if it is an
// io.Closer. The idle state is restored even on a broken session.
func (s *Session) Close() error {
	err := s.goIdle()
	if c, ok := s.t.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	s.logDebug("session closed", "broken", s.broken)
	return err
}

// State returns the current bus routing.
func (s *Session) State() BusSelector {
	return s.sel
}

// Broken reports whether an earlier transport failure broke the session.
func (s *Session) Broken() bool {
	return s.broken
}

// Config returns the effective session configuration.
func (s *Session) Config() Config {
	return s.config
}

// Idle routes SPI to the ICD with the ICD deselected. Only the routing and
// ICD chip-select lines are driven; all other sideband lines become inputs.
func (s *Session) Idle(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.goIdle()
}

func (s *Session) goIdle() error {
	if err := s.setSideband(SidebandICDCSN); err != nil {
		return err
	}
	s.sel = Idle
	s.settle()
	return nil
}

// RouteToFlash routes SPI to the NORA configuration flash. Valid only from
// Idle; a second call is a no-op.
func (s *Session) RouteToFlash(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	switch s.sel {
	case Flash:
		return nil
	case ICDActive:
		return ErrAlreadySelected
	}

	if err := s.setSideband(SidebandICD2NORAROM | SidebandICDCSN); err != nil {
		return err
	}
	s.sel = Flash
	s.settle()
	s.logDebug("spi routed to flash")
	return nil
}

// ReleaseFlashReset drives only the SPI clock and data lines of the control
// group, letting flash chip-select and FPGA reset go to their pull-ups.
func (s *Session) ReleaseFlashReset(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.t.SetControl(0, ControlSPIOnly); err != nil {
		return &TransportError{Op: "set control", Err: err}
	}
	s.settle()
	return nil
}

// ReadCDone reports the FPGA configuration-done line.
func (s *Session) ReadCDone(ctx context.Context) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	v, err := s.t.ReadControl()
	if err != nil {
		return false, &TransportError{Op: "read control", Err: err}
	}
	return v&ControlNORADONE != 0, nil
}

// Sideband returns the current level of the sideband lines.
func (s *Session) Sideband(ctx context.Context) (byte, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	v, err := s.t.ReadSideband()
	if err != nil {
		return 0, &TransportError{Op: "read sideband", Err: err}
	}
	return v, nil
}

// BusRead reads n bytes of SRAM starting at addr.
//
// Example:
//
//	data, err := s.BusRead(ctx, 0x0102AA, 4)
func (s *Session) BusRead(ctx context.Context, addr uint32, n int) ([]byte, error) {
	return s.busRead(ctx, protocol.AreaSRAM, addr, n)
}

// BusWrite writes data to SRAM starting at addr.
func (s *Session) BusWrite(ctx context.Context, addr uint32, data []byte) error {
	return s.busWrite(ctx, protocol.AreaSRAM, addr, data)
}

// CPUControl sends the run, step and reset lines in one command.
func (s *Session) CPUControl(ctx context.Context, ctl protocol.CPUControl) error {
	return s.command(ctx, "cpu control", func() error {
		_, err := s.exchange(protocol.BuildCPUControlCmd(ctl))
		return err
	})
}

// ReadTrace reads the trace register together with the ICD status.
func (s *Session) ReadTrace(ctx context.Context, req protocol.TraceRequest) (protocol.TraceStatus, protocol.TraceFrame, error) {
	var (
		status protocol.TraceStatus
		frame  protocol.TraceFrame
	)

	err := s.command(ctx, "read trace", func() error {
		rx, err := s.exchange(protocol.BuildReadTraceHeader(req))
		if err != nil {
			return err
		}
		if status, err = protocol.ParseStatusHeader(rx); err != nil {
			return err
		}

		rx, err = s.exchange(make([]byte, protocol.TracePayloadSize))
		if err != nil {
			return err
		}
		frame, err = protocol.ParseTraceFrame(rx)
		return err
	})

	return status, frame, err
}

// GetStatus reads the ICD status byte.
func (s *Session) GetStatus(ctx context.Context) (protocol.Status, error) {
	var status protocol.Status

	err := s.command(ctx, "get status", func() error {
		rx, err := s.exchange(protocol.BuildGetStatusCmd())
		if err != nil {
			return err
		}
		status, err = protocol.ParseStatusHeader(rx)
		return err
	})

	return status, err
}

// ForceDataBus forces opcode onto the CPU data bus, or releases the bus when
// opcode is nil. With ignoreWrites the target drops CPU write cycles.
func (s *Session) ForceDataBus(ctx context.Context, opcode *byte, ignoreWrites bool) error {
	return s.command(ctx, "force data bus", func() error {
		_, err := s.exchange(protocol.BuildForceDataBusCmd(opcode, ignoreWrites))
		return err
	})
}

func (s *Session) busRead(ctx context.Context, area protocol.Area, addr uint32, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read length must not be negative, got %d", n)
	}
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}

	out := make([]byte, 0, n)
	for off := 0; off < n; off += s.config.MaxRequestSize {
		size := min(n-off, s.config.MaxRequestSize)
		acc := protocol.BusAccess{
			Direction:     protocol.Read,
			AutoIncrement: true,
			Area:          area,
			Address:       addr + uint32(off),
			Length:        size,
		}
		hdr, err := protocol.BuildBusAccessHeader(acc)
		if err != nil {
			return nil, err
		}

		err = s.command(ctx, "bus read", func() error {
			if _, err := s.exchange(hdr); err != nil {
				return err
			}
			rx, err := s.exchange(make([]byte, size))
			if err != nil {
				return err
			}
			out = append(out, rx...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("at 0x%06X: %w", acc.Address, err)
		}
	}

	return out, nil
}

func (s *Session) busWrite(ctx context.Context, area protocol.Area, addr uint32, data []byte) error {
	if err := checkRange(addr, len(data)); err != nil {
		return err
	}

	for off := 0; off < len(data); off += s.config.MaxRequestSize {
		chunk := data[off:min(len(data), off+s.config.MaxRequestSize)]
		acc := protocol.BusAccess{
			Direction:     protocol.Write,
			AutoIncrement: true,
			Area:          area,
			Address:       addr + uint32(off),
			Length:        len(chunk),
		}
		hdr, err := protocol.BuildBusAccessHeader(acc)
		if err != nil {
			return err
		}

		err = s.command(ctx, "bus write", func() error {
			if _, err := s.exchange(hdr); err != nil {
				return err
			}
			_, err := s.exchange(chunk)
			return err
		})
		if err != nil {
			return fmt.Errorf("at 0x%06X: %w", acc.Address, err)
		}
	}

	return nil
}

// command runs fn inside one select/deselect bracket. The context is checked
// before the bracket opens, never inside it.
func (s *Session) command(ctx context.Context, op string, fn func() error) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	if err := s.selectICD(); err != nil {
		if IsTransportError(err) {
			s.markBroken(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	err := fn()
	if derr := s.deselectICD(); derr != nil && err == nil {
		err = derr
	}
	if err != nil {
		if IsTransportError(err) {
			s.markBroken(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// selectICD asserts the ICD chip select with SPI routed away from the flash.
func (s *Session) selectICD() error {
	switch s.sel {
	case ICDActive:
		return ErrAlreadySelected
	case Flash:
		return ErrFlashRouted
	}

	if err := s.setSideband(0); err != nil {
		return err
	}
	s.sel = ICDActive
	return nil
}

// deselectICD releases the ICD chip select. Deselecting an unselected ICD
// does nothing.
func (s *Session) deselectICD() error {
	if s.sel != ICDActive {
		return nil
	}
	if err := s.setSideband(SidebandICDCSN); err != nil {
		return err
	}
	s.sel = Idle
	return nil
}

func (s *Session) setSideband(value byte) error {
	if err := s.t.SetSideband(value, SidebandDriven); err != nil {
		return &TransportError{Op: "set sideband", Err: err}
	}
	return nil
}

func (s *Session) exchange(p []byte) ([]byte, error) {
	rx, err := s.t.Exchange(p)
	if err != nil {
		return nil, &TransportError{Op: "exchange", Err: err}
	}
	if len(rx) != len(p) {
		return nil, &TransportError{
			Op:  "exchange",
			Err: fmt.Errorf("sent %d bytes, received %d", len(p), len(rx)),
		}
	}
	return rx, nil
}

func (s *Session) check(ctx context.Context) error {
	if s.broken {
		return ErrSessionBroken
	}
	return ctx.Err()
}

func (s *Session) markBroken(op string, err error) {
	s.broken = true
	s.logError("transport failure, session broken", "op", op, "error", err)
}

func (s *Session) settle() {
	if s.config.SettleDelay > 0 {
		time.Sleep(s.config.SettleDelay)
	}
}

// checkRange validates an access of n bytes at addr against the 24-bit bus.
func checkRange(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > protocol.MaxAddress+1 {
		return fmt.Errorf("%d bytes at 0x%X: %w", n, addr, ErrAddressRange)
	}
	return nil
}

// logDebug logs a debug message if logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
