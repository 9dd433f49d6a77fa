package mixpack

import "github.com/pkg/errors"

// Params is the immutable record of every engine tunable. One Params value
// plus the input fully determines the model, the compressed artifact and
// the decompression. The zero value is not usable; call ApplyDefaults
// first.
type Params struct {
	// Sparse context selectors, one model per distinct value. Bit i of a
	// selector includes the (i+1)-th-to-last byte in that model's
	// context.
	Selectors []uint32
	// Probability precision in bits, 1 to 28.
	Precision int
	// Table index width in bits. Derived from MaxMemoryMB when zero.
	ContextBits int
	// Memory budget in MiB for the model tables; used only when
	// ContextBits is zero.
	MaxMemoryMB int
	// Saturation bound of the per-slot adaptation count.
	ModelMaxCount int
	// Reciprocal of the base count controlling the adaptation speed of
	// freshly reset slots.
	RecipBaseCount int
	// Reciprocal learning rate of the mixer weights.
	RecipLearningRate int
	// Track quoted runs and separate their statistics.
	ModelQuotes bool
	// Bits per input byte, 7 when every input byte is <= 0x7f, else 8.
	InBits int
	// Output radix: positive for 1<<OutBits, negative for an alphabet of
	// -OutBits symbols.
	OutBits int
	// Preset bytes fed through the model before coding starts.
	Preset []byte
	// Sentinel selects termination by EndByte instead of a transmitted
	// length.
	Sentinel bool
	// EndByte is the terminator byte in sentinel mode.
	EndByte byte
	// Number of identifier abbreviations the surrounding preprocessor
	// should use. Searched by the optimizer, ignored by the engine.
	NumAbbreviations int
	// Report per-byte bits of surprise in the Compressed artifact.
	ComputeByteEntropy bool
}

// Default returns the parameter record used when the caller provides none.
// The values are a reasonable starting point for minified source text.
func Default() *Params {
	p := &Params{}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults replaces unset fields by their default values and derives
// ContextBits from the memory budget if necessary.
func (p *Params) ApplyDefaults() {
	if p.Selectors == nil {
		p.Selectors = []uint32{0, 1, 2, 3, 6, 7, 13, 21, 57}
	}
	if p.Precision == 0 {
		p.Precision = 16
	}
	if p.MaxMemoryMB == 0 {
		p.MaxMemoryMB = 150
	}
	if p.ModelMaxCount == 0 {
		p.ModelMaxCount = 63
	}
	if p.RecipBaseCount == 0 {
		p.RecipBaseCount = 20
	}
	if p.RecipLearningRate == 0 {
		p.RecipLearningRate = 500
	}
	if p.InBits == 0 {
		p.InBits = 8
	}
	if p.OutBits == 0 {
		p.OutBits = 8
	}
	if p.ContextBits == 0 {
		p.ContextBits = contextBitsForBudget(
			len(dedupSelectors(p.Selectors)), p.MaxMemoryMB)
	}
}

// contextBitsForBudget returns the largest context width whose tables for n
// models fit the budget.
func contextBitsForBudget(n, maxMemoryMB int) int {
	budget := uint64(maxMemoryMB) << 20
	c := 1
	for c < 30 && uint64(n)<<uint(c+1)*slotBytes <= budget {
		c++
	}
	return c
}

// Verify checks that the record is complete and internally consistent.
// Records filled by ApplyDefaults always pass.
func (p *Params) Verify() error {
	if p == nil {
		return errors.New("mixpack: Params pointer must not be nil")
	}
	if !(1 <= p.Precision && p.Precision <= 28) {
		return errors.Errorf("mixpack: Precision %d out of range [1,28]", p.Precision)
	}
	if !(1 <= p.ContextBits && p.ContextBits <= 30) {
		return errors.Errorf("mixpack: ContextBits %d out of range [1,30]", p.ContextBits)
	}
	if !(1 <= p.ModelMaxCount && p.ModelMaxCount <= 0xffff) {
		return errors.Errorf("mixpack: ModelMaxCount %d out of range [1,65535]", p.ModelMaxCount)
	}
	// The upper bound keeps the base count above the float64 spacing of
	// the largest slot count, so the update divisor exceeds the count
	// strictly and predictions stay inside their range without clamping.
	if !(1 <= p.RecipBaseCount && p.RecipBaseCount <= 1<<24) {
		return errors.Errorf("mixpack: RecipBaseCount %d out of range [1,%d]",
			p.RecipBaseCount, 1<<24)
	}
	if p.RecipLearningRate < 1 {
		return errors.Errorf("mixpack: RecipLearningRate %d must be positive", p.RecipLearningRate)
	}
	if p.InBits != 7 && p.InBits != 8 {
		return errors.Errorf("mixpack: InBits %d must be 7 or 8", p.InBits)
	}
	if p.OutBits == 0 || (p.OutBits < 0 && p.OutBits > -2) ||
		p.OutBits >= 31 || p.OutBits < -maxState {
		return errors.Errorf("mixpack: invalid OutBits %d", p.OutBits)
	}
	var radix uint64
	if p.OutBits > 0 {
		radix = 1 << uint(p.OutBits)
	} else {
		radix = uint64(-p.OutBits)
	}
	if radix<<uint(p.Precision+1) > maxState+1 {
		return errors.Errorf(
			"mixpack: OutBits %d and Precision %d exceed the coder state word",
			p.OutBits, p.Precision)
	}
	if len(p.Selectors) == 0 {
		return errors.New("mixpack: at least one selector is required")
	}
	if p.NumAbbreviations < 0 {
		return errors.Errorf("mixpack: NumAbbreviations %d must not be negative", p.NumAbbreviations)
	}
	return nil
}

// Clone returns a deep copy of the record.
func (p *Params) Clone() *Params {
	q := *p
	q.Selectors = append([]uint32(nil), p.Selectors...)
	q.Preset = append([]byte(nil), p.Preset...)
	return &q
}
