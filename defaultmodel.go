package mixpack

import (
	"sort"

	"github.com/pkg/errors"
)

// quoteOffset separates "inside quoted string" statistics from "outside"
// statistics by shifting every sub-model context.
const quoteOffset = 129

// maxModelMemory caps the total table memory of one model ensemble.
const maxModelMemory = 1 << 31

// DefaultModel is the ensemble the drivers and the optimizer use: one
// sparse context model per selector under a logistic mixer, optionally
// extended with a quote-tracking context bit for source text containing
// string literals.
//
// Quote tracking assumes quotes come in balanced pairs. Unbalanced input
// degrades compression but is never an error.
type DefaultModel struct {
	mixer       *LogisticMixer
	modelQuotes bool
	quote       byte
	quotesSeen  map[byte]bool
}

// NewDefaultModel builds the ensemble for the given parameter record.
// Selectors are deduplicated in first-seen order. The construction fails
// when the selector count and context bits together exceed the addressable
// table memory.
func NewDefaultModel(p *Params, arena *Arena) (*DefaultModel, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	selectors := dedupSelectors(p.Selectors)
	mem := uint64(len(selectors)) << uint(p.ContextBits) * slotBytes
	if mem > maxModelMemory {
		return nil, errors.Errorf(
			"mixpack: %d selectors with %d context bits need %d bytes of tables",
			len(selectors), p.ContextBits, mem)
	}
	models := make([]Model, len(selectors))
	for i, sel := range selectors {
		m, err := NewSparseContextModel(sel, p, arena)
		if err != nil {
			for _, built := range models[:i] {
				built.Release()
			}
			return nil, err
		}
		models[i] = m
	}
	return &DefaultModel{
		mixer:       NewLogisticMixer(p.Precision, p.RecipLearningRate, models...),
		modelQuotes: p.ModelQuotes,
		quotesSeen:  make(map[byte]bool),
	}, nil
}

func dedupSelectors(selectors []uint32) []uint32 {
	out := selectors[:0:0]
	seen := make(map[uint32]bool, len(selectors))
	for _, s := range selectors {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (d *DefaultModel) context() uint32 {
	if d.quote != 0 {
		return quoteOffset
	}
	return 0
}

func (d *DefaultModel) Predict(context uint32) uint32 {
	return d.mixer.Predict(context + d.context())
}

func (d *DefaultModel) Update(bit int, context uint32) {
	d.mixer.Update(bit, context+d.context())
}

// FlushByte forwards the byte to the ensemble and advances the quote state
// machine: an unset quote opens on ", ' or backtick and closes on the same
// character.
func (d *DefaultModel) FlushByte(b byte) {
	d.mixer.FlushByte(b)
	if !d.modelQuotes {
		return
	}
	switch {
	case d.quote == 0 && (b == '"' || b == '\'' || b == '`'):
		d.quote = b
		d.quotesSeen[b] = true
	case d.quote == b:
		d.quote = 0
	}
}

func (d *DefaultModel) Release() {
	d.mixer.Release()
}

// QuotesSeen reports the quote characters that opened a quoted run, in
// ascending order.
func (d *DefaultModel) QuotesSeen() []byte {
	quotes := make([]byte, 0, len(d.quotesSeen))
	for q := range d.quotesSeen {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i] < quotes[j] })
	return quotes
}
