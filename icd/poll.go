package icd

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-x65icd/protocol"
)

// WaitStatus polls the ICD status every PollInterval until cond holds.
// It gives up with ErrPollTimeout after PollTimeout and returns the last
// status read.
//
// Example:
//
//	// wait for the trace buffer to drain
//	st, err := s.WaitStatus(ctx, func(st protocol.Status) bool {
//	    return !st.BufferNonEmpty()
//	})
func (s *Session) WaitStatus(ctx context.Context, cond func(protocol.Status) bool) (protocol.Status, error) {
	deadline := time.Now().Add(s.config.PollTimeout)
	polls := 0

	for {
		st, err := s.GetStatus(ctx)
		if err != nil {
			return st, err
		}
		polls++
		if cond(st) {
			return st, nil
		}

		if !time.Now().Before(deadline) {
			s.logDebug("status poll timed out", "polls", polls, "status", st.String())
			return st, fmt.Errorf("after %d polls, last status 0x%02X: %w", polls, byte(st), ErrPollTimeout)
		}

		timer := time.NewTimer(s.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return st, ctx.Err()
		case <-timer.C:
		}
	}
}
