package mixpack

import (
	"math"
	"testing"

	"github.com/kr/pretty"

	"github.com/mixpack/mixpack/internal/randjs"
)

func TestRenderBytes(t *testing.T) {
	tests := []struct {
		outBits int
		buf     []uint32
		want    []byte
	}{
		{outBits: 8, buf: []uint32{0xab, 0x00, 0x7f}, want: []byte{0xab, 0x00, 0x7f}},
		{outBits: 4, buf: []uint32{1, 2, 3}, want: []byte{0x12, 0x30}},
		{outBits: 3, buf: []uint32{5, 2}, want: []byte{0xa8}},
		{outBits: 1, buf: []uint32{1, 0, 1, 1, 0, 0, 1, 0}, want: []byte{0xb2}},
		{outBits: 6, buf: nil, want: []byte{}},
	}
	for _, tc := range tests {
		c := &Compressed{Buf: tc.buf}
		p := &Params{OutBits: tc.outBits}
		got, err := RenderBytes(c, p)
		if err != nil {
			t.Fatalf("RenderBytes(OutBits %d): %s", tc.outBits, err)
		}
		if d := pretty.Diff(got, tc.want); len(d) > 0 {
			t.Fatalf("RenderBytes(OutBits %d): %v", tc.outBits, d)
		}
	}
}

func TestRenderBytesRejectsWideAlphabets(t *testing.T) {
	c := &Compressed{Buf: []uint32{0}}
	for _, outBits := range []int{0, 9, -64} {
		if _, err := RenderBytes(c, &Params{OutBits: outBits}); err == nil {
			t.Fatalf("RenderBytes accepted OutBits %d", outBits)
		}
	}
}

func TestRenderBytesMatchesBufLength(t *testing.T) {
	data := randjs.Bytes(11, 1024)
	p := Default()
	p.OutBits = 6
	m, err := NewDefaultModel(p, nil)
	if err != nil {
		t.Fatalf("NewDefaultModel: %s", err)
	}
	defer m.Release()
	c, err := Compress(data, m, p)
	if err != nil {
		t.Fatalf("Compress: %s", err)
	}
	raw, err := RenderBytes(c, p)
	if err != nil {
		t.Fatalf("RenderBytes: %s", err)
	}
	if len(raw) != c.BufLengthInBytes {
		t.Fatalf("rendered %d bytes; BufLengthInBytes %d",
			len(raw), c.BufLengthInBytes)
	}
}

func TestFlateOracle(t *testing.T) {
	data := randjs.Bytes(5, 2048)
	oracle := FlateOracle(data, NewArena())
	score, err := oracle(Default())
	if err != nil {
		t.Fatalf("oracle: %s", err)
	}
	if score <= 0 || math.IsInf(score, 0) {
		t.Fatalf("implausible score %f", score)
	}
	if score >= float64(len(data)) {
		t.Fatalf("score %f does not beat the input size %d", score, len(data))
	}
}

func TestMatchCostOracle(t *testing.T) {
	data := randjs.Bytes(5, 2048)
	oracle := MatchCostOracle(data, NewArena())
	score, err := oracle(Default())
	if err != nil {
		t.Fatalf("oracle: %s", err)
	}
	if score <= 0 || math.IsInf(score, 0) {
		t.Fatalf("implausible score %f", score)
	}
	if score >= float64(len(data)) {
		t.Fatalf("score %f does not beat the input size %d", score, len(data))
	}
}

func TestMatchCostRepeatOffsets(t *testing.T) {
	var e matchCost
	e.push(100)
	e.push(200)
	first := e.cost(16, 100)
	e.push(300)
	e.push(400)
	e.push(500)
	again := e.cost(16, 100)
	if first >= again {
		t.Fatalf("repeat offset cost %d not below fresh offset cost %d",
			first, again)
	}
}
