package memtest

// XorShift32 is Marsaglia's 32-bit xorshift generator with the 13/17/5
// shift triple. The byte stream is the low byte of each successive state.
type XorShift32 struct {
	state uint32
}

// NewXorShift32 returns a generator seeded with seed.
// A zero seed yields an all-zero stream.
func NewXorShift32(seed uint32) *XorShift32 {
	return &XorShift32{state: seed}
}

// Seed restarts the sequence from seed.
func (x *XorShift32) Seed(seed uint32) {
	x.state = seed
}

// State returns the current generator state.
func (x *XorShift32) State() uint32 {
	return x.state
}

// Next advances the generator and returns the new state.
func (x *XorShift32) Next() uint32 {
	a := x.state
	a ^= a << 13
	a ^= a >> 17
	a ^= a << 5
	x.state = a
	return a
}

// NextByte advances the generator and returns the low byte of the new state.
func (x *XorShift32) NextByte() byte {
	return byte(x.Next())
}

// Fill fills p with the next len(p) bytes of the stream.
func (x *XorShift32) Fill(p []byte) {
	for i := range p {
		p[i] = x.NextByte()
	}
}
