package mixpack

import "testing"

func TestSparseHistoryRing(t *testing.T) {
	p := testParams()
	m, err := NewSparseContextModel(0b101, p, nil)
	if err != nil {
		t.Fatalf("NewSparseContextModel: %s", err)
	}
	if len(m.history) != 3 {
		t.Fatalf("history length %d; want 3", len(m.history))
	}
	for _, b := range []byte{1, 2, 3, 4} {
		m.FlushByte(b)
	}
	// history is [4 3 2]; selected positions are the last (bit 0) and the
	// third-to-last (bit 2) byte, folded oldest first
	want := (uint32(2)*997 + 4)
	if m.ctx != want {
		t.Fatalf("sparse context %d; want %d", m.ctx, want)
	}
}

func TestSparseSelectorZero(t *testing.T) {
	p := testParams()
	m, err := NewSparseContextModel(0, p, nil)
	if err != nil {
		t.Fatalf("NewSparseContextModel: %s", err)
	}
	if len(m.history) != 0 {
		t.Fatalf("history length %d; want 0", len(m.history))
	}
	for _, b := range []byte{10, 20, 30} {
		for i := 7; i >= 0; i-- {
			m.Predict(0)
			m.Update(int(b>>uint(i)&1), 0)
		}
		m.FlushByte(b)
		if m.ctx != 0 {
			t.Fatalf("order-0 model derived context %d from history", m.ctx)
		}
	}
}

func TestSparseContextAddsToCaller(t *testing.T) {
	p := testParams()
	sparse, err := NewSparseContextModel(1, p, nil)
	if err != nil {
		t.Fatalf("NewSparseContextModel: %s", err)
	}
	direct, err := NewDirectContextModel(p, nil)
	if err != nil {
		t.Fatalf("NewDirectContextModel: %s", err)
	}
	sparse.FlushByte('x')
	direct.FlushByte('x')
	// after one byte of history the sparse context is 'x'; training both
	// models on shifted contexts must keep them in lockstep
	for i := 0; i < 32; i++ {
		got := sparse.Predict(5)
		want := direct.Predict(5 + uint32('x'))
		if got != want {
			t.Fatalf("step %d: prediction %d; want %d", i, got, want)
		}
		sparse.Update(i&1, 5)
		direct.Update(i&1, 5+uint32('x'))
	}
}

func TestMixerMovesTowardReliableModel(t *testing.T) {
	p := testParams()
	good, err := NewSparseContextModel(0, p, nil)
	if err != nil {
		t.Fatalf("NewSparseContextModel: %s", err)
	}
	bad, err := NewSparseContextModel(1, p, nil)
	if err != nil {
		t.Fatalf("NewSparseContextModel: %s", err)
	}
	m := NewLogisticMixer(p.Precision, 100, good, bad)
	bound := uint32(1) << uint(p.Precision)

	// all-ones input: every sub-model converges, the mix must too
	for i := 0; i < 4096; i++ {
		freq := m.Predict(0)
		if freq >= bound {
			t.Fatalf("step %d: mixed frequency %d not below %d", i, freq, bound)
		}
		m.Update(1, 0)
		if i%8 == 7 {
			m.FlushByte(0xff)
		}
	}
	if freq := m.Predict(0); freq <= bound/2 {
		t.Fatalf("mixed frequency %d did not rise above the midpoint", freq)
	}
	for i, w := range m.weights {
		if w <= 0 {
			t.Fatalf("weight %d is %f; want positive after all-ones input", i, w)
		}
	}
}

func TestMixerInitialMidpoint(t *testing.T) {
	p := testParams()
	sub, err := NewSparseContextModel(0, p, nil)
	if err != nil {
		t.Fatalf("NewSparseContextModel: %s", err)
	}
	m := NewLogisticMixer(p.Precision, p.RecipLearningRate, sub)
	// zero weights squash to exactly one half
	want := uint32(1) << uint(p.Precision-1)
	if got := m.Predict(0); got != want {
		t.Fatalf("initial mixed frequency %d; want midpoint %d", got, want)
	}
}
