package mpsse

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// lines is a group of up to eight GPIO pins addressed as one byte; bit i is
// pin i. Nil pins are skipped and read as low.
type lines [8]gpio.PinIO

// set drives the pins whose direction bit is set to the matching value bit
// and turns the others into inputs.
func (l *lines) set(value, direction byte) error {
	for i, p := range l {
		if p == nil {
			continue
		}
		bit := byte(1) << i
		var err error
		if direction&bit != 0 {
			err = p.Out(gpio.Level(value&bit != 0))
		} else {
			err = p.In(gpio.PullNoChange, gpio.NoEdge)
		}
		if err != nil {
			return fmt.Errorf("pin %d: %w", i, err)
		}
	}
	return nil
}

// read samples all pins into one byte.
func (l *lines) read() byte {
	var v byte
	for i, p := range l {
		if p != nil && p.Read() == gpio.High {
			v |= 1 << i
		}
	}
	return v
}
