package mixpack

import "math/bits"

// SparseContextModel derives the context of a wrapped DirectContextModel
// from a caller-chosen subset of the preceding bytes. Bit i of the selector
// includes the (i+1)-th-to-last byte; selector 0 degenerates to an order-0
// model over the intra-byte bit accumulator alone.
type SparseContextModel struct {
	direct   *DirectContextModel
	selector uint32
	history  []byte
	ctx      uint32
}

// NewSparseContextModel wraps a fresh direct model with the given selector.
func NewSparseContextModel(selector uint32, p *Params, arena *Arena) (*SparseContextModel, error) {
	direct, err := NewDirectContextModel(p, arena)
	if err != nil {
		return nil, err
	}
	return &SparseContextModel{
		direct:   direct,
		selector: selector,
		history:  make([]byte, bits.Len32(selector)),
	}, nil
}

func (m *SparseContextModel) Predict(context uint32) uint32 {
	return m.direct.Predict(context + m.ctx)
}

func (m *SparseContextModel) Update(bit int, context uint32) {
	m.direct.Update(bit, context+m.ctx)
}

// FlushByte pushes the completed byte into the history ring and recomputes
// the rolling hash over the selected positions. history[i] is the
// (i+1)-th-to-last byte; selected bytes are folded oldest first with
// wrapping 32-bit arithmetic.
func (m *SparseContextModel) FlushByte(b byte) {
	m.direct.FlushByte(b)
	if len(m.history) > 0 {
		copy(m.history[1:], m.history)
		m.history[0] = b
	}
	h := uint32(0)
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.selector>>uint(i)&1 == 1 {
			h = h*997 + uint32(m.history[i])
		}
	}
	m.ctx = h
}

func (m *SparseContextModel) Release() {
	m.direct.Release()
}
