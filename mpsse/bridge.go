package mpsse

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// FTDI FT2232H USB identifiers.
const (
	VendorID  = 0x0403
	ProductID = 0x6010
)

// SPI clock rates.
const (
	FastClock = 6 * physic.MegaHertz
	SlowClock = 100 * physic.KiloHertz
)

// ErrNotFound is returned by Open when no matching FTDI device is attached.
var ErrNotFound = errors.New("mpsse: no matching FT2232H found")

// Config selects the FTDI device and its SPI clock.
type Config struct {
	// Serial selects a device by EEPROM serial number; empty takes the first
	Serial string

	// Interface is the FTDI channel, 0 for A through 3 for D
	Interface int

	// Slow runs SPI at SlowClock instead of FastClock
	Slow bool
}

// Bridge is an icd.Transport over one FTDI MPSSE channel.
type Bridge struct {
	dev      *ftdi.FT232H
	port     spi.PortCloser
	conn     spi.Conn
	sideband lines
	control  lines
}

// Open initializes periph, finds the requested channel and connects SPI in
// mode 0.
func Open(cfg Config) (*Bridge, error) {
	if cfg.Interface < 0 || cfg.Interface > 3 {
		return nil, fmt.Errorf("interface %d out of range 0..3", cfg.Interface)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	dev, err := find(cfg)
	if err != nil {
		return nil, err
	}

	port, err := dev.SPI()
	if err != nil {
		return nil, fmt.Errorf("%s: spi port: %w", dev, err)
	}

	clk := FastClock
	if cfg.Slow {
		clk = SlowClock
	}
	conn, err := port.Connect(clk, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("%s: spi connect at %s: %w", dev, clk, err)
	}

	return &Bridge{
		dev:      dev,
		port:     port,
		conn:     conn,
		sideband: lines{dev.C0, dev.C1, dev.C2, dev.C3, dev.C4, dev.C5, dev.C6, dev.C7},
		// D0..D3 belong to the SPI engine
		control: lines{nil, nil, nil, nil, dev.D4, dev.D5, dev.D6, dev.D7},
	}, nil
}

// find returns the cfg.Interface'th channel of the FT2232H matching cfg.Serial.
func find(cfg Config) (*ftdi.FT232H, error) {
	var (
		info ftdi.Info
		ee   ftdi.EEPROM
		n    int
	)
	for _, d := range ftdi.All() {
		d.Info(&info)
		if info.VenID != VendorID || info.DevID != ProductID {
			continue
		}
		if cfg.Serial != "" {
			if err := d.EEPROM(&ee); err != nil || ee.Serial != cfg.Serial {
				continue
			}
		}
		ft, ok := d.(*ftdi.FT232H)
		if !ok {
			continue
		}
		if n == cfg.Interface {
			return ft, nil
		}
		n++
	}
	if cfg.Serial != "" {
		return nil, fmt.Errorf("serial %q interface %c: %w", cfg.Serial, 'A'+cfg.Interface, ErrNotFound)
	}
	return nil, fmt.Errorf("interface %c: %w", 'A'+cfg.Interface, ErrNotFound)
}

// Exchange clocks p out on SPI and returns the bytes clocked in.
func (b *Bridge) Exchange(p []byte) ([]byte, error) {
	rx := make([]byte, len(p))
	if err := b.conn.Tx(p, rx); err != nil {
		return nil, err
	}
	return rx, nil
}

// SetSideband drives the CBUS pins selected by direction.
func (b *Bridge) SetSideband(value, direction byte) error {
	return b.sideband.set(value, direction)
}

// ReadSideband samples the CBUS pins.
func (b *Bridge) ReadSideband() (byte, error) {
	return b.sideband.read(), nil
}

// SetControl drives the D4..D7 pins selected by direction. Bits 0..3 are
// the SPI pins and are ignored.
func (b *Bridge) SetControl(value, direction byte) error {
	return b.control.set(value, direction)
}

// ReadControl samples the D4..D7 pins; bits 0..3 read as zero.
func (b *Bridge) ReadControl() (byte, error) {
	return b.control.read(), nil
}

// String names the underlying device.
func (b *Bridge) String() string {
	return b.dev.String()
}

// Close releases the SPI port and halts the device.
func (b *Bridge) Close() error {
	return errors.Join(b.port.Close(), b.dev.Halt())
}
