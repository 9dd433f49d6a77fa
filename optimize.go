package mixpack

import (
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/mixpack/mixpack/xlog"
)

// SizeEstimator scores a parameter record, typically by compressing a fixed
// input under the record and measuring the size after an outer
// general-purpose compressor. The optimizer treats the oracle as opaque and
// minimizes its value.
type SizeEstimator func(p *Params) (float64, error)

// Progress describes one optimizer trial.
type Progress struct {
	// Name of the search pass, e.g. "precision" or "anneal".
	Pass string
	// Rough completion ratio of the pass in [0,1].
	Ratio float64
	// The record evaluated in this trial.
	Candidate *Params
	// The oracle score of Candidate.
	Score float64
	// True when the candidate did not improve on the best score.
	Rejected bool
	// Best record and score found so far.
	Best      *Params
	BestScore float64
	// True when this trial updated the best record.
	BestUpdated bool
}

// OptimizerConfig configures Optimize. Only Estimate is mandatory.
type OptimizerConfig struct {
	// Initial parameter record; nil selects Default().
	Params *Params
	// Search effort: 0 scores only the initial record, 1 evaluates short
	// fixed candidate lists, 2 and above run the full bracket search and
	// add selector annealing with more iterations per level.
	Level int
	// The size oracle to minimize.
	Estimate SizeEstimator
	// Called after every trial; returning true aborts the search at the
	// next trial boundary. The best record found so far is still
	// returned.
	Progress func(Progress) (abort bool)
	// Random source for the annealing pass. A fixed seed reproduces the
	// search; nil seeds from the clock.
	Rand *rand.Rand
	// Optional trial trace.
	Log xlog.Logger
}

// OptimizeResult carries the outcome of a parameter search.
type OptimizeResult struct {
	Elapsed   time.Duration
	Best      *Params
	BestScore float64
}

// Annealing schedule for the selector search.
const (
	annealStartTemp = 10.0
	annealFloorTemp = 0.05
	annealCooling   = 0.99
	annealK         = 8.0
	// Selector values are drawn below 1<<9; higher orders are legal but
	// not searched.
	annealSelectorLimit = 512
)

type optimizer struct {
	estimate  SizeEstimator
	progress  func(Progress) bool
	rnd       *rand.Rand
	log       xlog.Logger
	best      *Params
	bestScore float64
	aborted   bool
}

// trial scores one candidate and folds it into the best-so-far state.
// Candidates that fail Verify are skipped without consulting the oracle.
func (o *optimizer) trial(pass string, ratio float64, cand *Params) (float64, error) {
	if o.aborted {
		return math.Inf(1), nil
	}
	if err := cand.Verify(); err != nil {
		xlog.Printf(o.log, "%s: skipping invalid candidate: %s", pass, err)
		return math.Inf(1), nil
	}
	score, err := o.estimate(cand)
	if err != nil {
		return 0, errors.Wrapf(err, "mixpack: size oracle failed in pass %s", pass)
	}
	updated := score < o.bestScore
	if updated {
		o.best = cand.Clone()
		o.bestScore = score
	}
	xlog.Printf(o.log, "%s %3.0f%%: score %.1f, best %.1f", pass, ratio*100,
		score, o.bestScore)
	if o.progress != nil {
		abort := o.progress(Progress{
			Pass:        pass,
			Ratio:       ratio,
			Candidate:   cand.Clone(),
			Score:       score,
			Rejected:    !updated,
			Best:        o.best.Clone(),
			BestScore:   o.bestScore,
			BestUpdated: updated,
		})
		if abort {
			o.aborted = true
		}
	}
	return score, nil
}

// numericPass describes one bounded integer parameter search.
type numericPass struct {
	name        string
	lo, hi      int
	exponential bool
	quick       []int
	apply       func(p *Params, v int)
}

// The passes run in this fixed order; each continues from the best record
// of the previous one.
var numericPasses = []numericPass{
	{name: "precision", lo: 8, hi: 22,
		quick: []int{12, 14, 16, 18},
		apply: func(p *Params, v int) { p.Precision = v }},
	{name: "max-count", lo: 1, hi: 1023, exponential: true,
		quick: []int{5, 15, 63, 255},
		apply: func(p *Params, v int) { p.ModelMaxCount = v }},
	{name: "base-count", lo: 1, hi: 1000, exponential: true,
		quick: []int{2, 10, 20, 100},
		apply: func(p *Params, v int) { p.RecipBaseCount = v }},
	{name: "learning-rate", lo: 16, hi: 1 << 14, exponential: true,
		quick: []int{256, 512, 1024},
		apply: func(p *Params, v int) { p.RecipLearningRate = v }},
	{name: "abbreviations", lo: 0, hi: 64,
		quick: []int{0, 16, 32, 64},
		apply: func(p *Params, v int) { p.NumAbbreviations = v }},
}

// bracket returns up to five candidate values spanning [lo,hi], linearly or
// exponentially spaced, deduplicated and ascending.
func bracket(lo, hi int, exponential bool) []int {
	vs := make([]int, 0, 5)
	for k := 0; k <= 4; k++ {
		var v int
		if exponential && lo >= 1 {
			v = int(math.Round(float64(lo) *
				math.Pow(float64(hi)/float64(lo), float64(k)/4)))
		} else {
			v = lo + (hi-lo)*k/4
		}
		if n := len(vs); n == 0 || vs[n-1] != v {
			vs = append(vs, v)
		}
	}
	return vs
}

// searchNumeric shrinks the bracket around the minimum of the oracle until
// the remaining range is scanned linearly. In quick mode only the fixed
// candidate list is evaluated.
func (o *optimizer) searchNumeric(pass numericPass, quick bool) error {
	base := o.best.Clone()
	scores := make(map[int]float64)
	eval := func(v int, ratio float64) (float64, error) {
		if s, ok := scores[v]; ok {
			return s, nil
		}
		cand := base.Clone()
		pass.apply(cand, v)
		s, err := o.trial(pass.name, ratio, cand)
		if err == nil {
			scores[v] = s
		}
		return s, err
	}

	if quick {
		for i, v := range pass.quick {
			if o.aborted {
				return nil
			}
			ratio := float64(i+1) / float64(len(pass.quick))
			if _, err := eval(v, ratio); err != nil {
				return err
			}
		}
		return nil
	}

	budget := 5*4 + 4
	done := 0
	ratio := func() float64 {
		done++
		if done > budget {
			return 1
		}
		return float64(done) / float64(budget)
	}

	lo, hi := pass.lo, pass.hi
	for hi-lo >= 4 {
		vs := bracket(lo, hi, pass.exponential)
		min, minScore := vs[0], math.Inf(1)
		for _, v := range vs {
			if o.aborted {
				return nil
			}
			s, err := eval(v, ratio())
			if err != nil {
				return err
			}
			if s < minScore {
				min, minScore = v, s
			}
		}
		nlo, nhi := lo, hi
		for i, v := range vs {
			if v != min {
				continue
			}
			if i > 0 {
				nlo = vs[i-1]
			}
			if i < len(vs)-1 {
				nhi = vs[i+1]
			}
			break
		}
		if nlo == lo && nhi == hi {
			break
		}
		lo, hi = nlo, nhi
	}
	for v := lo; v <= hi; v++ {
		if o.aborted {
			return nil
		}
		if _, err := eval(v, ratio()); err != nil {
			return err
		}
	}
	return nil
}

// anneal searches the selector set by simulated annealing: one randomly
// chosen selector is replaced by a random unused value, improvements are
// kept, and worsening moves are accepted with a probability that shrinks as
// the temperature cools geometrically.
func (o *optimizer) anneal(iterations int) error {
	cur := o.best.Clone()
	curScore := o.bestScore

	// The selector count never changes during the search. If the set
	// already holds every value below the draw limit there is no move to
	// make.
	distinct := make(map[uint32]bool)
	for _, s := range cur.Selectors {
		if s < annealSelectorLimit {
			distinct[s] = true
		}
	}
	if len(distinct) == annealSelectorLimit {
		return nil
	}

	temp := annealStartTemp
	for i := 0; i < iterations; i++ {
		if o.aborted {
			return nil
		}
		cand := cur.Clone()
		j := o.rnd.Intn(len(cand.Selectors))
		for {
			s := uint32(o.rnd.Intn(annealSelectorLimit))
			if !containsSelector(cand.Selectors, s) {
				cand.Selectors[j] = s
				break
			}
		}
		prevBest := o.bestScore
		score, err := o.trial("anneal", float64(i+1)/float64(iterations), cand)
		if err != nil {
			return err
		}
		if score < prevBest ||
			o.rnd.Float64() < math.Exp((curScore-score)/(annealK*temp)) {
			cur, curScore = cand, score
		}
		temp *= annealCooling
		if temp < annealFloorTemp {
			temp = annealFloorTemp
		}
	}
	return nil
}

func containsSelector(selectors []uint32, s uint32) bool {
	for _, v := range selectors {
		if v == s {
			return true
		}
	}
	return false
}

// Optimize searches the model parameter space for the record minimizing the
// oracle. A cancellation requested through the Progress callback is not an
// error; the result then carries the best record found up to that point.
func Optimize(cfg *OptimizerConfig) (*OptimizeResult, error) {
	if cfg == nil || cfg.Estimate == nil {
		return nil, errors.New("mixpack: OptimizerConfig requires an Estimate oracle")
	}
	start := time.Now()
	base := cfg.Params
	if base == nil {
		base = Default()
	} else {
		base = base.Clone()
		base.ApplyDefaults()
	}
	if err := base.Verify(); err != nil {
		return nil, err
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	o := &optimizer{
		estimate:  cfg.Estimate,
		progress:  cfg.Progress,
		rnd:       rnd,
		log:       cfg.Log,
		best:      base.Clone(),
		bestScore: math.Inf(1),
	}

	if _, err := o.trial("initial", 1, base); err != nil {
		return nil, err
	}
	if cfg.Level > 0 {
		for _, pass := range numericPasses {
			if o.aborted {
				break
			}
			if err := o.searchNumeric(pass, cfg.Level == 1); err != nil {
				return nil, err
			}
		}
		if cfg.Level >= 2 && !o.aborted {
			if err := o.anneal(100 * (cfg.Level - 1)); err != nil {
				return nil, err
			}
		}
	}

	return &OptimizeResult{
		Elapsed:   time.Since(start),
		Best:      o.best,
		BestScore: o.bestScore,
	}, nil
}
