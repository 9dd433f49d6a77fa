package mixpack

import "sync"

// slotBytes is the approximate memory footprint of one table slot:
// 4 bytes prediction, 2 bytes count, 1 byte confirmation mark.
const slotBytes = 7

// Arena recycles model tables across model instances. The optimizer creates
// thousands of short-lived models; clearing a multi-megabyte table for each
// of them dominates the runtime, so tables are reused and reset lazily slot
// by slot. A nil *Arena is valid and simply allocates fresh tables.
//
// A table is owned exclusively by one model from acquire until release.
type Arena struct {
	mu   sync.Mutex
	free map[int][]*table
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{free: make(map[int][]*table)}
}

// table backs one direct context model. gen is the confirmation mark of the
// current owner; a slot whose mark differs from gen has not been touched by
// the owner and reads as freshly reset.
type table struct {
	preds  []uint32
	counts []uint16
	marks  []uint8
	gen    uint8
	arena  *Arena
}

func newTable(size int, arena *Arena) *table {
	return &table{
		preds:  make([]uint32, size),
		counts: make([]uint16, size),
		marks:  make([]uint8, size),
		gen:    1,
		arena:  arena,
	}
}

// acquire hands out a table of the given slot count, reusing a released one
// when possible. The generation mark increases per instantiation and wraps
// with a full mark clear, so a reused table is indistinguishable from a
// zero-filled one.
func (a *Arena) acquire(size int) *table {
	if a == nil {
		return newTable(size, nil)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	list := a.free[size]
	if len(list) == 0 {
		return newTable(size, a)
	}
	t := list[len(list)-1]
	a.free[size] = list[:len(list)-1]
	t.gen++
	if t.gen == 0 {
		for i := range t.marks {
			t.marks[i] = 0
		}
		t.gen = 1
	}
	return t
}

// release returns the table to its arena. The caller must not use the table
// afterwards.
func (t *table) release() {
	a := t.arena
	if a == nil {
		return
	}
	a.mu.Lock()
	a.free[len(t.preds)] = append(a.free[len(t.preds)], t)
	a.mu.Unlock()
}

// confirm lazily resets the slot under the current generation. half is the
// midpoint prediction for the owner's precision.
func (t *table) confirm(i uint32, half uint32) {
	if t.marks[i] != t.gen {
		t.marks[i] = t.gen
		t.preds[i] = half
		t.counts[i] = 0
	}
}
