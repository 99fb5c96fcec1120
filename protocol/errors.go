package protocol

import "fmt"

// UnexpectedStatusError reports an ICD status byte that contradicts the state
// the host expected, e.g. a valid trace register after a dequeue drained it.
type UnexpectedStatusError struct {
	// Operation is the command that observed the status
	Operation string

	// Status is the status byte received
	Status Status

	// Reason describes the expectation that failed
	Reason string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status 0x%02X (%s): %s", e.Operation, byte(e.Status), describeStatus(e.Status), e.Reason)
}

// IsUnexpectedStatus returns true if the error is an UnexpectedStatusError.
func IsUnexpectedStatus(err error) bool {
	_, ok := err.(*UnexpectedStatusError)
	return ok
}

// describeStatus returns a compact flag string for a status byte.
func describeStatus(s Status) string {
	flag := func(set bool, c byte) byte {
		if set {
			return c
		}
		return '-'
	}
	return string([]byte{
		flag(s.Valid(), 'V'),
		flag(s.Overflow(), 'O'),
		flag(s.BufferNonEmpty(), 'B'),
		flag(s.BufferFull(), 'F'),
		flag(s.CPURunning(), 'R'),
	})
}

// String returns the compact flag form of the status, e.g. "V---R".
func (s Status) String() string {
	return describeStatus(s)
}
