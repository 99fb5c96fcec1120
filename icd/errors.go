package icd

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadySelected is returned when a command bracket is opened while
	// the ICD is already selected.
	ErrAlreadySelected = errors.New("icd already selected")

	// ErrFlashRouted is returned when the ICD is selected while SPI is routed
	// to the configuration flash.
	ErrFlashRouted = errors.New("spi routed to flash")

	// ErrSessionBroken is returned by every operation after a transport
	// failure inside a command. The target address register is in an
	// unknown state and the session must be reopened.
	ErrSessionBroken = errors.New("session broken by earlier transport failure")

	// ErrPollTimeout is returned when WaitStatus runs out of time.
	ErrPollTimeout = errors.New("status poll timed out")

	// ErrAddressRange is returned for accesses outside the 24-bit bus or an area.
	ErrAddressRange = errors.New("address out of range")
)

// TransportError wraps a failure of the underlying Transport.
type TransportError struct {
	// Op is the transport operation that failed, e.g. "exchange"
	Op string

	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
