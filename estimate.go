package mixpack

import (
	"bytes"
	"compress/flate"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/ulikunitz/lz"
)

// RenderBytes packs the renormalization symbols of c into raw bytes, most
// significant bit first. It supports positive OutBits up to 8; rendering
// wider or non-power-of-two alphabets into a host-specific text encoding is
// owned by the packaging layer.
func RenderBytes(c *Compressed, p *Params) ([]byte, error) {
	if p.OutBits < 1 || p.OutBits > 8 {
		return nil, errors.Errorf(
			"mixpack: cannot render OutBits %d to raw bytes", p.OutBits)
	}
	if p.OutBits == 8 {
		out := make([]byte, len(c.Buf))
		for i, s := range c.Buf {
			out[i] = byte(s)
		}
		return out, nil
	}
	out := make([]byte, 0, c.BufLengthInBytes)
	var acc uint32
	var n uint
	for _, s := range c.Buf {
		acc = acc<<uint(p.OutBits) | s
		n += uint(p.OutBits)
		for n >= 8 {
			n -= 8
			out = append(out, byte(acc>>n))
		}
	}
	if n > 0 {
		out = append(out, byte(acc<<(8-n)))
	}
	return out, nil
}

// compressRender runs the engine under p and renders the artifact to bytes.
func compressRender(data []byte, p *Params, arena *Arena) ([]byte, error) {
	m, err := NewDefaultModel(p, arena)
	if err != nil {
		return nil, err
	}
	defer m.Release()
	c, err := Compress(data, m, p)
	if err != nil {
		return nil, err
	}
	return RenderBytes(c, p)
}

// FlateOracle returns a size estimator that compresses data under the
// candidate record and reports the byte size after a further DEFLATE pass,
// the outer compressor the engine's output is usually wrapped in.
func FlateOracle(data []byte, arena *Arena) SizeEstimator {
	return func(p *Params) (float64, error) {
		raw, err := compressRender(data, p, arena)
		if err != nil {
			return 0, err
		}
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.BestCompression)
		if err != nil {
			return 0, errors.Wrap(err, "mixpack: flate oracle")
		}
		if _, err = w.Write(raw); err != nil {
			return 0, errors.Wrap(err, "mixpack: flate oracle")
		}
		if err = w.Close(); err != nil {
			return 0, errors.Wrap(err, "mixpack: flate oracle")
		}
		return float64(buf.Len()), nil
	}
}

// matchCost approximates the bit cost of LZ sequences. Matches repeating
// one of the last four offsets are cheaper, as in LZMA-style coders.
type matchCost struct {
	rep [4]uint32
}

func (e *matchCost) push(o uint32) {
	r := &e.rep
	switch o {
	default:
		r[3] = r[2]
		fallthrough
	case r[2]:
		r[2] = r[1]
		fallthrough
	case r[1]:
		r[1] = r[0]
		r[0] = o
	case r[0]:
	}
}

func (e *matchCost) cost(m, o uint32) uint64 {
	if o == 0 {
		return 8 * uint64(m)
	}
	g := 0
	for ; g < len(e.rep); g++ {
		if e.rep[g] == o {
			break
		}
	}
	c := uint64(1 + bits.Len32(m))
	if g >= len(e.rep) {
		c += uint64(bits.Len32(o))
	}
	return c
}

// MatchCostOracle returns a cheaper size estimator: instead of running
// DEFLATE it drives an LZ sequencer over the rendered output and sums
// approximate sequence bit costs. The absolute values are rougher than
// FlateOracle's, but the ordering of candidates is usually the same.
func MatchCostOracle(data []byte, arena *Arena) SizeEstimator {
	return func(p *Params) (float64, error) {
		raw, err := compressRender(data, p, arena)
		if err != nil {
			return 0, err
		}
		if len(raw) == 0 {
			return 0, nil
		}
		windowSize := len(raw) + 1
		if windowSize < 1<<12 {
			windowSize = 1 << 12
		}
		cfg := lz.DHSConfig{WindowSize: windowSize, MaxSize: windowSize}
		seq, err := cfg.NewInputSequencer()
		if err != nil {
			return 0, errors.Wrap(err, "mixpack: match cost oracle")
		}
		if _, err = seq.Write(raw); err != nil {
			return 0, errors.Wrap(err, "mixpack: match cost oracle")
		}
		var (
			blk      lz.Block
			est      matchCost
			costBits uint64
		)
		for {
			_, err = seq.Sequence(&blk, 0)
			if err != nil {
				if err == lz.ErrEmptyBuffer {
					break
				}
				return 0, errors.Wrap(err, "mixpack: match cost oracle")
			}
			litIndex := 0
			for _, s := range blk.Sequences {
				costBits += est.cost(uint32(s.LitLen), 0)
				litIndex += int(s.LitLen)
				costBits += est.cost(s.MatchLen, s.Offset)
				est.push(s.Offset)
			}
			costBits += est.cost(uint32(len(blk.Literals)-litIndex), 0)
		}
		return float64(costBits+7) / 8, nil
	}
}
