package icd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/moffa90/go-x65icd/protocol"
	"github.com/moffa90/go-x65icd/sim"
)

// recorder wraps a simulated target and records the host traffic.
type recorder struct {
	*sim.Target
	exchanges [][]byte
	sideband  [][2]byte
	closed    bool
}

func newRecorder() *recorder {
	return &recorder{Target: sim.New()}
}

func (r *recorder) Exchange(p []byte) ([]byte, error) {
	r.exchanges = append(r.exchanges, append([]byte(nil), p...))
	return r.Target.Exchange(p)
}

func (r *recorder) SetSideband(value, direction byte) error {
	r.sideband = append(r.sideband, [2]byte{value, direction})
	return r.Target.SetSideband(value, direction)
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func (r *recorder) reset() {
	r.exchanges = nil
	r.sideband = nil
}

func openTest(t *testing.T, opts ...Option) (*Session, *recorder) {
	t.Helper()

	r := newRecorder()
	opts = append([]Option{WithSettleDelay(0)}, opts...)
	s, err := Open(context.Background(), r, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r.reset()
	return s, r
}

func TestOpenGoesIdle(t *testing.T) {
	r := newRecorder()
	s, err := Open(context.Background(), r, WithSettleDelay(0))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	want := [][2]byte{{SidebandICDCSN, SidebandICD2NORAROM | SidebandICDCSN}}
	if diff := cmp.Diff(want, r.sideband); diff != "" {
		t.Errorf("sideband writes mismatch (-want +got):\n%s", diff)
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle", s.State())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !r.closed {
		t.Error("transport not closed")
	}
	last := r.sideband[len(r.sideband)-1]
	if last != [2]byte{SidebandICDCSN, SidebandDriven} {
		t.Errorf("last sideband write = %v, want idle", last)
	}
}

func TestOpenNilTransport(t *testing.T) {
	if _, err := Open(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil transport")
	}
}

func TestBusReadFraming(t *testing.T) {
	s, r := openTest(t)
	r.Poke(0x0102AA, []byte{1, 2, 3, 4})

	data, err := s.BusRead(context.Background(), 0x0102AA, 4)
	if err != nil {
		t.Fatalf("BusRead: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}

	wantEx := [][]byte{
		{0x61, 0xAA, 0x02, 0x01, 0x00},
		{0x00, 0x00, 0x00, 0x00},
	}
	if diff := cmp.Diff(wantEx, r.exchanges); diff != "" {
		t.Errorf("exchanges mismatch (-want +got):\n%s", diff)
	}

	wantSB := [][2]byte{
		{0x00, SidebandDriven},
		{SidebandICDCSN, SidebandDriven},
	}
	if diff := cmp.Diff(wantSB, r.sideband); diff != "" {
		t.Errorf("bracket mismatch (-want +got):\n%s", diff)
	}

	// same request, same bytes on the wire
	first := r.exchanges[0]
	r.reset()
	if _, err := s.BusRead(context.Background(), 0x0102AA, 4); err != nil {
		t.Fatalf("BusRead: %v", err)
	}
	if !bytes.Equal(first, r.exchanges[0]) {
		t.Errorf("repeated header % X, want % X", r.exchanges[0], first)
	}
}

func TestBusWriteChunking(t *testing.T) {
	s, r := openTest(t, WithMaxRequestSize(4096))

	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i * 7)
	}

	if err := s.BusWrite(context.Background(), 0x010000, data); err != nil {
		t.Fatalf("BusWrite: %v", err)
	}

	wantHeaders := [][]byte{
		{0x41, 0x00, 0x00, 0x01},
		{0x41, 0x00, 0x10, 0x01},
		{0x41, 0x00, 0x20, 0x01},
	}
	var headers [][]byte
	for i := 0; i < len(r.exchanges); i += 2 {
		headers = append(headers, r.exchanges[i])
	}
	if diff := cmp.Diff(wantHeaders, headers); diff != "" {
		t.Errorf("chunk headers mismatch (-want +got):\n%s", diff)
	}
	if got := len(r.exchanges[5]); got != 10000-2*4096 {
		t.Errorf("last chunk = %d bytes, want %d", got, 10000-2*4096)
	}

	back, err := s.BusRead(context.Background(), 0x010000, len(data))
	if err != nil {
		t.Fatalf("BusRead: %v", err)
	}
	if !bytes.Equal(data, back) {
		t.Error("read back differs from written data")
	}
}

func TestBusAccessArguments(t *testing.T) {
	s, r := openTest(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{name: "read past 24 bits", run: func() error { _, err := s.BusRead(ctx, 0xFFFFFF, 2); return err }},
		{name: "write past 24 bits", run: func() error { return s.BusWrite(ctx, 0x1000000, []byte{1}) }},
		{name: "io register overrun", run: func() error { _, err := s.ReadIORegs(ctx, 0xFF, 2); return err }},
		{name: "bank register overrun", run: func() error { return s.WriteBankRegs(ctx, 1, []byte{1, 2}) }},
		{name: "boot rom overrun", run: func() error { _, err := s.ReadBootROM(ctx, 0xFFF, 2); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, ErrAddressRange) {
				t.Errorf("error = %v, want ErrAddressRange", err)
			}
		})
	}

	if len(r.exchanges) != 0 {
		t.Errorf("%d exchanges for rejected requests, want 0", len(r.exchanges))
	}
	if s.Broken() {
		t.Error("argument errors broke the session")
	}
}

func TestZeroLengthAccess(t *testing.T) {
	s, r := openTest(t)

	data, err := s.BusRead(context.Background(), 0, 0)
	if err != nil || len(data) != 0 {
		t.Errorf("BusRead(0) = %v, %v; want empty, nil", data, err)
	}
	if err := s.BusWrite(context.Background(), 0, nil); err != nil {
		t.Errorf("BusWrite(nil) = %v", err)
	}
	if r.Sessions() != 0 {
		t.Errorf("sessions = %d, want 0", r.Sessions())
	}
}

func TestDoubleSelectRejected(t *testing.T) {
	s, r := openTest(t)

	if err := s.selectICD(); err != nil {
		t.Fatalf("first select: %v", err)
	}
	writes := len(r.sideband)

	if err := s.selectICD(); !errors.Is(err, ErrAlreadySelected) {
		t.Errorf("second select error = %v, want ErrAlreadySelected", err)
	}
	if len(r.sideband) != writes {
		t.Error("rejected select touched the sideband lines")
	}

	// a command cannot open a bracket inside another
	if _, err := s.GetStatus(context.Background()); !errors.Is(err, ErrAlreadySelected) {
		t.Errorf("GetStatus error = %v, want ErrAlreadySelected", err)
	}

	if err := s.deselectICD(); err != nil {
		t.Fatalf("deselect: %v", err)
	}
	if err := s.deselectICD(); err != nil {
		t.Errorf("second deselect: %v", err)
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestRouteToFlash(t *testing.T) {
	s, r := openTest(t)
	ctx := context.Background()

	if err := s.RouteToFlash(ctx); err != nil {
		t.Fatalf("RouteToFlash: %v", err)
	}
	if v, d := r.Sideband(); v != SidebandICD2NORAROM|SidebandICDCSN || d != SidebandDriven {
		t.Errorf("sideband = 0x%02X/0x%02X, want flash routing", v, d)
	}
	if err := s.RouteToFlash(ctx); err != nil {
		t.Errorf("second RouteToFlash: %v", err)
	}

	if _, err := s.GetStatus(ctx); !errors.Is(err, ErrFlashRouted) {
		t.Errorf("GetStatus error = %v, want ErrFlashRouted", err)
	}

	if err := s.Idle(ctx); err != nil {
		t.Fatalf("Idle: %v", err)
	}
	if _, err := s.GetStatus(ctx); err != nil {
		t.Errorf("GetStatus after Idle: %v", err)
	}
}

func TestTransportFailureBreaksSession(t *testing.T) {
	s, r := openTest(t)
	ctx := context.Background()
	boom := errors.New("usb disconnected")

	// header goes through, payload fails
	r.FailExchange(1, boom)

	_, err := s.BusRead(ctx, 0x100, 16)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	if !IsTransportError(err) {
		t.Errorf("error %v is not a TransportError", err)
	}
	if !s.Broken() {
		t.Fatal("session not broken after transport failure")
	}
	if r.Selected() {
		t.Error("icd left selected after failure")
	}

	if _, err := s.GetStatus(ctx); !errors.Is(err, ErrSessionBroken) {
		t.Errorf("GetStatus error = %v, want ErrSessionBroken", err)
	}
	if err := s.Idle(ctx); !errors.Is(err, ErrSessionBroken) {
		t.Errorf("Idle error = %v, want ErrSessionBroken", err)
	}

	// Close still restores the idle routing
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestSidebandFailure(t *testing.T) {
	s, r := openTest(t)
	r.FailSideband(0, errors.New("gpio write failed"))

	err := s.CPUControl(context.Background(), protocol.CPUControl{Reset: true})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if te.Op != "set sideband" {
		t.Errorf("Op = %q, want %q", te.Op, "set sideband")
	}
	if !s.Broken() {
		t.Error("session not broken")
	}
}

func TestCancelledContext(t *testing.T) {
	s, r := openTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.BusRead(ctx, 0, 16); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if r.Sessions() != 0 {
		t.Errorf("sessions = %d, want 0", r.Sessions())
	}
	if s.Broken() {
		t.Error("cancellation broke the session")
	}
}

func TestCPUControlAndTrace(t *testing.T) {
	s, r := openTest(t)
	ctx := context.Background()
	frame := protocol.TraceFrame{Flags: 0x39, Counter: 3, Data: 0xA9, AddrLow: 0x00, AddrHigh: 0x02}
	r.Feed(frame)

	if err := s.CPUControl(ctx, protocol.CPUControl{Step: true}); err != nil {
		t.Fatalf("CPUControl: %v", err)
	}
	if diff := cmp.Diff([]byte{0x22, 0x00}, r.exchanges[0]); diff != "" {
		t.Errorf("cpu control frame mismatch (-want +got):\n%s", diff)
	}

	st, got, err := s.ReadTrace(ctx, protocol.TraceRequest{})
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	if !st.Valid() || st.Overflow() {
		t.Errorf("status = %s, want valid", st)
	}
	if diff := cmp.Diff(frame, got); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	if n := len(r.exchanges[len(r.exchanges)-1]); n != protocol.TracePayloadSize {
		t.Errorf("payload exchange = %d bytes, want %d", n, protocol.TracePayloadSize)
	}

	status, err := s.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Valid() {
		t.Errorf("status = %s, want trace register consumed", status)
	}
}

func TestForceDataBus(t *testing.T) {
	s, r := openTest(t)
	nop := byte(0xEA)

	if err := s.ForceDataBus(context.Background(), &nop, true); err != nil {
		t.Fatalf("ForceDataBus: %v", err)
	}
	op, ign := r.ForcedOpcode()
	if op == nil || *op != 0xEA || !ign {
		t.Errorf("forced = %v, %v; want 0xEA, true", op, ign)
	}
}

func TestAreas(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()

	if err := s.WriteIORegs(ctx, 0x40, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteIORegs: %v", err)
	}
	io, err := s.ReadIORegs(ctx, 0x40, 3)
	if err != nil {
		t.Fatalf("ReadIORegs: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, io); diff != "" {
		t.Errorf("io registers mismatch (-want +got):\n%s", diff)
	}

	if err := s.WriteBankRegs(ctx, 0, []byte{0x80, 0x01}); err != nil {
		t.Fatalf("WriteBankRegs: %v", err)
	}
	banks, err := s.ReadBankRegs(ctx)
	if err != nil {
		t.Fatalf("ReadBankRegs: %v", err)
	}
	if diff := cmp.Diff([]byte{0x80, 0x01}, banks); diff != "" {
		t.Errorf("bank registers mismatch (-want +got):\n%s", diff)
	}

	rom := bytes.Repeat([]byte{0x4C}, 4096)
	if err := s.WriteBootROM(ctx, 0, rom); err != nil {
		t.Fatalf("WriteBootROM: %v", err)
	}
	back, err := s.ReadBootROM(ctx, 0xFF0, 16)
	if err != nil {
		t.Fatalf("ReadBootROM: %v", err)
	}
	if !bytes.Equal(rom[:16], back) {
		t.Errorf("boot rom = % X", back)
	}
}

func TestFlashControlLines(t *testing.T) {
	s, r := openTest(t)
	ctx := context.Background()

	if err := s.ReleaseFlashReset(ctx); err != nil {
		t.Fatalf("ReleaseFlashReset: %v", err)
	}
	if v, d := r.Control(); v != 0 || d != ControlSPIOnly {
		t.Errorf("control = 0x%02X/0x%02X, want 0x00/0x03", v, d)
	}

	done, err := s.ReadCDone(ctx)
	if err != nil || !done {
		t.Errorf("ReadCDone = %v, %v; want true, nil", done, err)
	}

	r.CDone = false
	if done, _ := s.ReadCDone(ctx); done {
		t.Error("ReadCDone = true, want false")
	}
}

func TestWaitStatus(t *testing.T) {
	s, r := openTest(t, WithPollInterval(time.Millisecond), WithPollTimeout(20*time.Millisecond))
	ctx := context.Background()

	r.Feed(protocol.TraceFrame{Data: 0xEA})
	if err := s.CPUControl(ctx, protocol.CPUControl{Step: true}); err != nil {
		t.Fatalf("CPUControl: %v", err)
	}

	st, err := s.WaitStatus(ctx, protocol.Status.Valid)
	if err != nil {
		t.Fatalf("WaitStatus: %v", err)
	}
	if !st.Valid() {
		t.Errorf("status = %s, want valid", st)
	}

	_, err = s.WaitStatus(ctx, protocol.Status.CPURunning)
	if !errors.Is(err, ErrPollTimeout) {
		t.Errorf("error = %v, want ErrPollTimeout", err)
	}
	if s.Broken() {
		t.Error("timeout broke the session")
	}
}

func TestWaitStatusCancelled(t *testing.T) {
	s, _ := openTest(t, WithPollInterval(50*time.Millisecond), WithPollTimeout(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.WaitStatus(ctx, protocol.Status.CPURunning)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want func(Config) bool
	}{
		{name: "max request size", opt: WithMaxRequestSize(256), want: func(c Config) bool { return c.MaxRequestSize == 256 }},
		{name: "max request size too large ignored", opt: WithMaxRequestSize(1 << 20), want: func(c Config) bool { return c.MaxRequestSize == protocol.MaxRequestSize }},
		{name: "max request size zero ignored", opt: WithMaxRequestSize(0), want: func(c Config) bool { return c.MaxRequestSize == protocol.MaxRequestSize }},
		{name: "poll timeout", opt: WithPollTimeout(time.Minute), want: func(c Config) bool { return c.PollTimeout == time.Minute }},
		{name: "negative poll interval ignored", opt: WithPollInterval(-1), want: func(c Config) bool { return c.PollInterval == time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.opt(&cfg)
			if !tt.want(cfg) {
				t.Errorf("unexpected config %+v", cfg)
			}
		})
	}
}
