package mixpack

import "math"

// LogisticMixer blends the predictions of several sub-models in log-odds
// space with online-learned weights. Each sub-model's prediction is
// stretched, summed under its weight and squashed back into scaled
// frequency space. The stretched values and the mixed result are cached for
// the following Update.
type LogisticMixer struct {
	models    []Model
	weights   []float64
	stretched []float64
	mixed     uint32
	precision uint
	rate      float64
}

// NewLogisticMixer creates a mixer over the given sub-models. All weights
// start at zero, which makes the initial mix the midpoint probability.
// Larger recipLearningRate adapts the weights more slowly.
func NewLogisticMixer(precision, recipLearningRate int, models ...Model) *LogisticMixer {
	return &LogisticMixer{
		models:    models,
		weights:   make([]float64, len(models)),
		stretched: make([]float64, len(models)),
		precision: uint(precision),
		rate:      float64(recipLearningRate),
	}
}

// Predict mixes the sub-model predictions into one scaled frequency.
func (m *LogisticMixer) Predict(context uint32) uint32 {
	scale := float64(uint32(1) << (m.precision + 1))
	sum := 0.0
	for i, sub := range m.models {
		q := float64(sub.Predict(context)<<1 | 1)
		st := math.Log(q / (scale - q))
		m.stretched[i] = st
		sum += m.weights[i] * st
	}
	z := 1 / (1 + math.Exp(-sum))
	mixed := uint32(z * float64(uint32(1)<<m.precision))
	if max := uint32(1)<<m.precision - 1; mixed > max {
		mixed = max
	}
	m.mixed = mixed
	return mixed
}

// Update first lets every sub-model adapt and then moves each weight along
// the gradient of the coding loss of the mixed prediction.
func (m *LogisticMixer) Update(bit int, context uint32) {
	for _, sub := range m.models {
		sub.Update(bit, context)
	}
	err := float64(bit) - float64(m.mixed)/float64(uint32(1)<<m.precision)
	for i, st := range m.stretched {
		m.weights[i] += st / m.rate * err
	}
}

func (m *LogisticMixer) FlushByte(b byte) {
	for _, sub := range m.models {
		sub.FlushByte(b)
	}
}

func (m *LogisticMixer) Release() {
	for _, sub := range m.models {
		sub.Release()
	}
}
