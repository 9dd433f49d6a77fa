// Package randjs generates random byte sequences that resemble minified
// program source. Tests and benchmarks use it as a deterministic stand-in
// for real payloads: identifier reuse, repeated punctuation and balanced
// quoted strings give context models something to learn without shipping a
// corpus.
package randjs

import "math/rand"

type token struct {
	s string
	p float64
}

// Relative token frequencies, roughly modeled on minified JavaScript.
var tokens = []token{
	{"var ", 2}, {"return ", 1}, {"function(", 1.5}, {"if(", 1.5},
	{"for(", 0.8}, {"else ", 0.6}, {"new ", 0.4}, {"this.", 1.2},
	{"=", 3}, {"==", 1}, {"+", 2}, {"-", 1}, {"*", 0.5},
	{"(", 3}, {")", 3}, {"{", 2}, {"}", 2}, {"[", 1}, {"]", 1},
	{";", 4}, {",", 3}, {".", 2}, {"&&", 0.7}, {"||", 0.7},
	{"0", 1.5}, {"1", 1.5}, {"2", 0.8}, {"10", 0.5}, {"255", 0.3},
}

var idents = []string{"a", "b", "c", "d", "e", "i", "j", "k", "n", "t",
	"x", "y", "el", "fn", "ctx", "len", "idx", "obj", "arr", "tmp"}

var words = []string{"push", "slice", "join", "map", "length", "width",
	"height", "style", "value", "index", "data", "node"}

var cum []float64

func init() {
	sum := 0.0
	cum = make([]float64, len(tokens))
	for i, t := range tokens {
		sum += t.p
		cum[i] = sum
	}
}

func pick(rnd *rand.Rand) string {
	x := rnd.Float64() * cum[len(cum)-1]
	for i, c := range cum {
		if x < c {
			return tokens[i].s
		}
	}
	return tokens[len(tokens)-1].s
}

// Bytes returns n bytes of generated source. The same seed and length
// always produce the same output. All bytes are below 0x80.
func Bytes(seed int64, n int) []byte {
	rnd := rand.New(rand.NewSource(seed))
	out := make([]byte, 0, n+16)
	for len(out) < n {
		switch r := rnd.Float64(); {
		case r < 0.35:
			out = append(out, idents[rnd.Intn(len(idents))]...)
		case r < 0.45:
			q := byte('"')
			if rnd.Intn(2) == 1 {
				q = '\''
			}
			out = append(out, q)
			out = append(out, words[rnd.Intn(len(words))]...)
			out = append(out, q)
		default:
			out = append(out, pick(rnd)...)
		}
	}
	return out[:n]
}
