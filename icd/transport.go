package icd

// Transport is the link to the target board: a full-duplex SPI exchange plus
// the two GPIO groups of the USB bridge.
//
// The sideband group (ACBUS on the FT2232H) routes the shared SPI lines to
// the ICD core or the configuration flash. The control group (the upper
// ADBUS lines) carries the flash chip-select and the FPGA reset/done lines.
//
// Exchange clocks out p and returns the bytes clocked in at the same time.
// It must not touch the chip-select lines; Session drives them through
// SetSideband around every command.
//
// A Transport that also implements io.Closer is closed by Session.Close.
type Transport interface {
	Exchange(p []byte) ([]byte, error)

	SetSideband(value, direction byte) error
	ReadSideband() (byte, error)

	SetControl(value, direction byte) error
	ReadControl() (byte, error)
}

// Sideband line masks (ACBUS0..7).
const (
	// SidebandICD2NORAROM routes SPI to the NORA configuration flash when high
	SidebandICD2NORAROM = 0x01

	// SidebandICDCSN is the active-low ICD chip select
	SidebandICDCSN = 0x02

	SidebandAURARSTN = 0x04
	SidebandAURAFCSN = 0x08
	SidebandVERAFCSN = 0x10
	SidebandVAFCDONE = 0x40
	SidebandVERARSTN = 0x80

	// SidebandDriven is the set of lines the host ever drives; all others stay inputs
	SidebandDriven = SidebandICD2NORAROM | SidebandICDCSN
)

// Control line masks (ADBUS4..7).
const (
	ControlNORAFCSN = 0x10
	ControlNORADONE = 0x40
	ControlNORARSTN = 0x80

	// ControlSPIOnly drives only SCK and MOSI, releasing flash CS and CRESET
	ControlSPIOnly = 0x03
)
