package mixpack

// Model is the capability shared by all bit predictors. Predict returns the
// scaled frequency of the next bit being 1 in [0, 1<<precision); Update
// informs the model of the bit that actually occurred. The driver calls
// Predict before Update for every bit and FlushByte after the last bit of
// each byte. Release returns pooled resources; the model must not be used
// afterwards.
//
// The context argument is an offset added by enclosing models; callers
// outside the model hierarchy pass 0.
type Model interface {
	Predict(context uint32) uint32
	Update(bit int, context uint32)
	FlushByte(b byte)
	Release()
}

// DirectContextModel is the leaf predictor: a flat table of per-context
// predictions and adaptation counts. The effective context combines the
// caller's context with a running intra-byte bit accumulator and is masked
// to ContextBits.
type DirectContextModel struct {
	tbl        *table
	mask       uint32
	precision  uint
	half       uint32
	maxCount   uint16
	baseCount  float64
	bitContext uint32
}

// NewDirectContextModel allocates a model table from the arena, which may be
// nil. The Params record must be complete; see (*Params).ApplyDefaults.
func NewDirectContextModel(p *Params, arena *Arena) (*DirectContextModel, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return &DirectContextModel{
		tbl:        arena.acquire(1 << uint(p.ContextBits)),
		mask:       1<<uint(p.ContextBits) - 1,
		precision:  uint(p.Precision),
		half:       1 << uint(p.Precision-1),
		maxCount:   uint16(p.ModelMaxCount),
		baseCount:  1 / float64(p.RecipBaseCount),
		bitContext: 1,
	}, nil
}

// Predict returns the table prediction for the current context.
func (m *DirectContextModel) Predict(context uint32) uint32 {
	i := (context + m.bitContext) & m.mask
	m.tbl.confirm(i, m.half)
	return m.tbl.preds[i]
}

// Update adapts the slot addressed by the same context Predict used and
// appends the bit to the intra-byte accumulator.
//
// The prediction provably stays inside [0, 1<<precision): after the
// saturating increment count >= 1, and Verify bounds RecipBaseCount so that
// the float64 sum count + baseCount exceeds the count strictly. The
// correction is therefore strictly smaller in magnitude than the distance
// to the nearest bound. No clamping is applied; clamping would alter the
// bitstream.
func (m *DirectContextModel) Update(bit int, context uint32) {
	if bit != 0 && bit != 1 {
		panic("mixpack: bit must be 0 or 1")
	}
	i := (context + m.bitContext) & m.mask
	t := m.tbl
	t.confirm(i, m.half)
	if t.counts[i] < m.maxCount {
		t.counts[i]++
	}
	sh := 29 - m.precision
	pred := int32(t.preds[i])
	delta := (int32(bit) << m.precision) - pred
	step := int32(float64(delta<<sh)/(float64(t.counts[i])+m.baseCount)) >> sh
	t.preds[i] = uint32(pred + step)
	m.bitContext = m.bitContext<<1 | uint32(bit)
}

// FlushByte resets the intra-byte bit accumulator.
func (m *DirectContextModel) FlushByte(b byte) {
	m.bitContext = 1
}

// Release returns the backing table to the arena.
func (m *DirectContextModel) Release() {
	m.tbl.release()
}
