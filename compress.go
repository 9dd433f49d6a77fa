package mixpack

import (
	"math"

	"github.com/pkg/errors"
)

// Compressed is the output of Compress. State and Buf together are the
// complete compressed artifact; decompression additionally needs the Params
// record and a freshly built model.
type Compressed struct {
	// Final coder state.
	State uint32
	// Renormalization symbols, each below the output radix, ordered for
	// forward consumption.
	Buf []uint32
	// Length of the input in bytes, or -1 in sentinel mode.
	InputLength int
	// Size of Buf after packing the symbols into bytes.
	BufLengthInBytes int
	// Bits of surprise per input byte; only filled when
	// Params.ComputeByteEntropy is set.
	ByteEntropy []float64
}

// sentinelLimit caps the output of a sentinel-mode decompression so that a
// corrupt stream cannot grow without bound.
const sentinelLimit = 1 << 26

// primeModel feeds the preset bytes through the model without coding them.
func primeModel(m Model, preset []byte, inBits int) {
	for _, b := range preset {
		for i := inBits - 1; i >= 0; i-- {
			bit := int(b >> uint(i) & 1)
			m.Predict(0)
			m.Update(bit, 0)
		}
		m.FlushByte(b)
	}
}

// Compress encodes data bit by bit, most significant bit first, through the
// model. The model must be freshly constructed from p; Compress consumes
// its adaptation state.
//
// In sentinel mode the terminator byte must occur exactly once, as the last
// byte of data.
func Compress(data []byte, m Model, p *Params) (*Compressed, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	if p.Sentinel {
		if len(data) == 0 || data[len(data)-1] != p.EndByte {
			return nil, errors.Errorf(
				"mixpack: input does not end with the sentinel byte %#02x",
				p.EndByte)
		}
		for i, b := range data[:len(data)-1] {
			if b == p.EndByte {
				return nil, errors.Errorf(
					"mixpack: sentinel byte %#02x occurs at offset %d before the end",
					p.EndByte, i)
			}
		}
	}
	if p.InBits == 7 {
		for i, b := range data {
			if b > 0x7f {
				return nil, errors.Errorf(
					"mixpack: byte %#02x at offset %d does not fit 7 input bits",
					b, i)
			}
		}
	}

	primeModel(m, p.Preset, p.InBits)

	c := &Compressed{InputLength: len(data)}
	if p.Sentinel {
		c.InputLength = -1
	}
	if p.ComputeByteEntropy {
		c.ByteEntropy = make([]float64, len(data))
	}

	enc := NewEncoder(p.Precision, p.OutBits)
	scale := float64(uint64(1) << uint(p.Precision+1))
	for bi, b := range data {
		e := 0.0
		for i := p.InBits - 1; i >= 0; i-- {
			bit := int(b >> uint(i) & 1)
			freq := m.Predict(0)
			enc.WriteBit(bit, freq)
			m.Update(bit, 0)
			if c.ByteEntropy != nil {
				p1 := float64(freq<<1|1) / scale
				if bit == 0 {
					p1 = 1 - p1
				}
				e -= math.Log2(p1)
			}
		}
		m.FlushByte(b)
		if c.ByteEntropy != nil {
			c.ByteEntropy[bi] = e
		}
	}
	c.State, c.Buf = enc.Finish()
	c.BufLengthInBytes = bufLengthInBytes(len(c.Buf), p.OutBits)
	return c, nil
}

// bufLengthInBytes reports the byte size of n renormalization symbols after
// packing.
func bufLengthInBytes(n, outBits int) int {
	bitsPerSymbol := float64(outBits)
	if outBits < 0 {
		bitsPerSymbol = math.Log2(float64(-outBits))
	}
	return int(math.Ceil(float64(n) * bitsPerSymbol / 8))
}

// Decompress reconstructs the byte sequence from the compressed artifact.
// The model must be freshly constructed from the identical Params record
// used by Compress; the stream carries no checksum, so a mismatch produces
// silently wrong output or a CorruptError.
func Decompress(c *Compressed, m Model, p *Params) ([]byte, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	if !p.Sentinel && c.InputLength < 0 {
		return nil, errors.New(
			"mixpack: artifact carries no input length; sentinel mode required")
	}

	primeModel(m, p.Preset, p.InBits)

	dec := NewDecoder(c.State, c.Buf, p.Precision, p.OutBits)
	var out []byte
	for {
		if !p.Sentinel && len(out) == c.InputLength {
			break
		}
		var b byte
		for i := p.InBits - 1; i >= 0; i-- {
			freq := m.Predict(0)
			bit, err := dec.ReadBit(freq)
			if err != nil {
				return nil, err
			}
			m.Update(bit, 0)
			b |= byte(bit) << uint(i)
		}
		m.FlushByte(b)
		out = append(out, b)
		if p.Sentinel {
			if b == p.EndByte {
				break
			}
			if len(out) >= sentinelLimit {
				return nil, corrupt("sentinel byte never reached")
			}
		}
	}
	return out, nil
}
