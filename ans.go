package mixpack

// maxState bounds the coder state word. Encoder and decoder arithmetic
// assumes the state stays below 1<<31.
const maxState = 1<<31 - 1

// radixFor converts the OutBits parameter into the size of the output
// alphabet. A positive value selects the radix 1<<OutBits, a negative value
// selects an alphabet of -OutBits symbols.
func radixFor(outBits int) uint32 {
	switch {
	case outBits < 0 && outBits >= -maxState:
		r := uint32(-outBits)
		if r >= 2 {
			return r
		}
	case 0 < outBits && outBits < 31:
		return 1 << uint(outBits)
	}
	panic("mixpack: invalid outBits value")
}

type ansBit struct {
	bit  uint32
	freq uint32
}

// Encoder is a binary rANS encoder. WriteBit buffers bits together with
// their predicted frequencies; the actual coding happens in Finish, which
// replays the buffer in reverse so that the decoder can read the stream in
// original order.
type Encoder struct {
	precision uint
	radix     uint64
	bits      []ansBit
	finished  bool
}

// NewEncoder creates an encoder for the given probability precision and
// output radix. It panics if the combination cannot be represented in the
// 31-bit state word.
func NewEncoder(precision, outBits int) *Encoder {
	if !(1 <= precision && precision <= 28) {
		panic("mixpack: precision out of range [1,28]")
	}
	radix := radixFor(outBits)
	if uint64(radix)<<uint(precision+1) > maxState+1 {
		panic("mixpack: precision and outBits exceed the state word")
	}
	return &Encoder{precision: uint(precision), radix: uint64(radix)}
}

// WriteBit buffers a single bit and the predicted frequency of the bit
// being 1, scaled to 1<<precision. Calling WriteBit after Finish is a
// programmer error.
func (e *Encoder) WriteBit(bit int, freq uint32) {
	if e.finished {
		panic("mixpack: WriteBit called after Finish")
	}
	if bit != 0 && bit != 1 {
		panic("mixpack: bit must be 0 or 1")
	}
	if freq >= 1<<e.precision {
		panic("mixpack: predicted frequency out of range")
	}
	e.bits = append(e.bits, ansBit{bit: uint32(bit), freq: freq})
}

// Finish encodes the buffered bits in reverse order and returns the final
// state together with the renormalization buffer. The buffer is ordered for
// forward consumption by the decoder.
func (e *Encoder) Finish() (state uint32, buf []uint32) {
	if e.finished {
		panic("mixpack: Finish called twice")
	}
	e.finished = true

	scale := uint64(1) << (e.precision + 1)
	x := scale
	for i := len(e.bits) - 1; i >= 0; i-- {
		b := e.bits[i]
		// odd frequency over the scale 1<<(precision+1) rules out the
		// probabilities 0 and 1
		q := uint64(b.freq)<<1 | 1
		f, start := q, uint64(0)
		if b.bit == 0 {
			f, start = scale-q, q
		}
		for x >= e.radix*f {
			buf = append(buf, uint32(x%e.radix))
			x /= e.radix
		}
		x = x/f*scale + x%f + start
		if x > maxState {
			// cannot happen for parameters accepted by NewEncoder
			panic("mixpack: encoder state overflow")
		}
	}

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return uint32(x), buf
}

// Decoder is the binary rANS decoder matching Encoder. It reconstructs the
// encoder's state sequence, pulling symbols from the buffer whenever the
// state drops below the renormalization threshold.
type Decoder struct {
	precision uint
	scale     uint32
	radix     uint32
	state     uint32
	buf       []uint32
	pos       int
}

// NewDecoder creates a decoder over the (state, buf) pair produced by
// Finish. Precision and outBits must match the encoder exactly; the stream
// carries no means to detect a mismatch.
func NewDecoder(state uint32, buf []uint32, precision, outBits int) *Decoder {
	if !(1 <= precision && precision <= 28) {
		panic("mixpack: precision out of range [1,28]")
	}
	radix := radixFor(outBits)
	if uint64(radix)<<uint(precision+1) > maxState+1 {
		panic("mixpack: precision and outBits exceed the state word")
	}
	return &Decoder{
		precision: uint(precision),
		scale:     1 << uint(precision+1),
		radix:     radix,
		state:     state,
		buf:       buf,
	}
}

// ReadBit decodes one bit using the predicted frequency of the bit being 1,
// scaled to 1<<precision. Reading past the end of the buffer reports a
// CorruptError.
func (d *Decoder) ReadBit(freq uint32) (bit int, err error) {
	if freq >= 1<<d.precision {
		panic("mixpack: predicted frequency out of range")
	}
	q := freq<<1 | 1
	rem := d.state % d.scale
	x := d.state / d.scale
	if rem < q {
		bit = 1
		d.state = q*x + rem
	} else {
		d.state = (d.scale-q)*x + rem - q
	}
	for d.state < d.scale {
		if d.pos >= len(d.buf) {
			return 0, corrupt("rANS buffer out of bounds")
		}
		d.state = d.state*d.radix + d.buf[d.pos]
		d.pos++
	}
	return bit, nil
}
