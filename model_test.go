package mixpack

import (
	"math/rand"
	"testing"
)

// testParams returns a small but complete record so that model tests stay
// fast.
func testParams() *Params {
	p := &Params{
		Selectors:   []uint32{0, 1, 2, 3},
		ContextBits: 12,
	}
	p.ApplyDefaults()
	return p
}

func TestDirectModelRangeInvariant(t *testing.T) {
	for _, precision := range []int{1, 8, 16, 22, 28} {
		p := testParams()
		p.Precision = precision
		p.OutBits = 1
		m, err := NewDirectContextModel(p, nil)
		if err != nil {
			t.Fatalf("NewDirectContextModel: %s", err)
		}
		rnd := rand.New(rand.NewSource(int64(precision)))
		bound := uint32(1) << uint(precision)
		for i := 0; i < 200000; i++ {
			ctx := uint32(rnd.Intn(1 << 12))
			freq := m.Predict(ctx)
			if freq >= bound {
				t.Fatalf("precision %d: prediction %d not below %d",
					precision, freq, bound)
			}
			m.Update(rnd.Intn(2), ctx)
			if rnd.Intn(8) == 0 {
				m.FlushByte(byte(i))
			}
		}
		for i, v := range m.tbl.preds {
			if m.tbl.marks[i] == m.tbl.gen && v >= bound {
				t.Fatalf("precision %d: slot %d prediction %d not below %d",
					precision, i, v, bound)
			}
		}
		for i, c := range m.tbl.counts {
			if m.tbl.marks[i] == m.tbl.gen && c > uint16(p.ModelMaxCount) {
				t.Fatalf("precision %d: slot %d count %d above %d",
					precision, i, c, p.ModelMaxCount)
			}
		}
	}
}

func TestDirectModelCountSaturation(t *testing.T) {
	p := testParams()
	p.ModelMaxCount = 3
	m, err := NewDirectContextModel(p, nil)
	if err != nil {
		t.Fatalf("NewDirectContextModel: %s", err)
	}
	for i := 0; i < 100; i++ {
		m.Predict(0)
		m.Update(1, 0)
		m.FlushByte(0xff)
	}
	i := (0 + 1) & m.mask // context 0, reset accumulator
	if c := m.tbl.counts[i]; c != 3 {
		t.Fatalf("count %d; want saturation at 3", c)
	}
}

// TestDirectModelLargeBaseCount drives the model at the largest accepted
// RecipBaseCount and the largest count, where the update divisor comes
// closest to the count itself, and checks that constant input never pushes a
// prediction onto its bound.
func TestDirectModelLargeBaseCount(t *testing.T) {
	p := testParams()
	p.Precision = 28
	p.OutBits = 1
	p.ModelMaxCount = 0xffff
	p.RecipBaseCount = 1 << 24
	m, err := NewDirectContextModel(p, nil)
	if err != nil {
		t.Fatalf("NewDirectContextModel: %s", err)
	}
	bound := uint32(1) << uint(p.Precision)
	for i := 0; i < 200000; i++ {
		if freq := m.Predict(0); freq >= bound {
			t.Fatalf("step %d: prediction %d not below %d", i, freq, bound)
		}
		m.Update(1, 0)
		m.FlushByte(0xff)
	}
	for i := 0; i < 200000; i++ {
		m.Predict(0)
		m.Update(0, 0)
		m.FlushByte(0)
	}
	i := (0 + 1) & m.mask
	if v := m.tbl.preds[i]; v >= bound {
		t.Fatalf("prediction %d escaped [0,%d)", v, bound)
	}
}

func TestVerifyRejectsHugeBaseCount(t *testing.T) {
	for _, rbc := range []int{1<<24 + 1, 1 << 60} {
		p := testParams()
		p.RecipBaseCount = rbc
		if err := p.Verify(); err == nil {
			t.Fatalf("Verify accepted RecipBaseCount %d", rbc)
		}
	}
	p := testParams()
	p.RecipBaseCount = 1 << 24
	if err := p.Verify(); err != nil {
		t.Fatalf("Verify rejected RecipBaseCount %d: %s", 1<<24, err)
	}
}

func TestDirectModelBadBitPanics(t *testing.T) {
	p := testParams()
	m, err := NewDirectContextModel(p, nil)
	if err != nil {
		t.Fatalf("NewDirectContextModel: %s", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("Update with bit 7 did not panic")
		}
	}()
	m.Update(7, 0)
}

// TestLazyResetConsistency checks that a pooled, dirty table behaves
// exactly like a zero-filled one.
func TestLazyResetConsistency(t *testing.T) {
	p := testParams()
	arena := NewArena()

	dirty, err := NewDirectContextModel(p, arena)
	if err != nil {
		t.Fatalf("NewDirectContextModel: %s", err)
	}
	rnd := rand.New(rand.NewSource(99))
	for i := 0; i < 50000; i++ {
		ctx := uint32(rnd.Intn(1 << 12))
		dirty.Predict(ctx)
		dirty.Update(rnd.Intn(2), ctx)
	}
	dirty.Release()

	pooled, err := NewDirectContextModel(p, arena)
	if err != nil {
		t.Fatalf("NewDirectContextModel: %s", err)
	}
	fresh, err := NewDirectContextModel(p, nil)
	if err != nil {
		t.Fatalf("NewDirectContextModel: %s", err)
	}
	if pooled.tbl == dirty.tbl && pooled.tbl.gen == 1 {
		t.Fatal("pooled table was not handed out with a new generation")
	}
	rnd = rand.New(rand.NewSource(100))
	for i := 0; i < 50000; i++ {
		ctx := uint32(rnd.Intn(1 << 12))
		bit := rnd.Intn(2)
		a := pooled.Predict(ctx)
		b := fresh.Predict(ctx)
		if a != b {
			t.Fatalf("step %d: pooled prediction %d; fresh %d", i, a, b)
		}
		pooled.Update(bit, ctx)
		fresh.Update(bit, ctx)
		if rnd.Intn(8) == 0 {
			pooled.FlushByte(byte(i))
			fresh.FlushByte(byte(i))
		}
	}
}

// TestArenaGenerationWrap reuses one table often enough to wrap the
// generation mark and checks that the full clear keeps slots fresh.
func TestArenaGenerationWrap(t *testing.T) {
	p := testParams()
	arena := NewArena()
	for round := 0; round < 300; round++ {
		m, err := NewDirectContextModel(p, arena)
		if err != nil {
			t.Fatalf("round %d: %s", round, err)
		}
		if got := m.Predict(0); got != m.half {
			t.Fatalf("round %d: first prediction %d; want midpoint %d",
				round, got, m.half)
		}
		m.Update(1, 0)
		m.FlushByte(0)
		if got := m.Predict(0); got <= m.half {
			t.Fatalf("round %d: prediction %d did not move above midpoint",
				round, got)
		}
		m.Release()
	}
}
