package rm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maitreyeee/passengersim/sim/air"
)

// probp iteration guards.
const (
	probpMaxIter = 10
	probpEpsilon = 0.01
)

// ProBPStep computes leg bid prices from path-level demand forecasts by
// probabilistic convergence: path fares are prorated to legs in proportion
// to the current bid prices, each leg's marginal seat value is recomputed
// from the prorated demand, and the loop repeats until bid prices settle.
// Writes leg.BidPrice and the total displacement cost on each path class.
type ProBPStep struct{}

func (s *ProBPStep) StepType() string { return "probp" }
func (s *ProBPStep) Kind() string     { return KindPath }

func (s *ProBPStep) Run(ctx *Context) error {
	bp := make(map[int]float64, len(ctx.Legs)) // keyed by FltNo
	byLeg := make(map[int][]*air.Path)
	for _, p := range ctx.Paths {
		for _, leg := range p.Legs {
			byLeg[leg.FltNo] = append(byLeg[leg.FltNo], p)
		}
	}

	for iter := 0; iter < probpMaxIter; iter++ {
		next := make(map[int]float64, len(ctx.Legs))
		for _, leg := range ctx.Legs {
			next[leg.FltNo] = legBidPrice(leg, byLeg[leg.FltNo], bp)
		}
		var delta float64
		for k, v := range next {
			delta = math.Max(delta, math.Abs(v-bp[k]))
		}
		bp = next
		if delta < probpEpsilon {
			break
		}
	}

	for _, leg := range ctx.Legs {
		leg.BidPrice = bp[leg.FltNo]
	}
	for _, p := range ctx.Paths {
		var total float64
		for _, leg := range p.Legs {
			total += bp[leg.FltNo]
		}
		for _, pc := range p.Classes {
			pc.Displacement = total
		}
	}
	return nil
}

// virtualClass is one path class's prorated contribution to a leg.
type virtualClass struct {
	fare  float64
	mean  float64
	varce float64
}

// legBidPrice is the expected marginal seat revenue of the leg's next
// seat given the prorated path demand: the maximum over nested virtual
// classes of fare_j * P(D_1..j > remaining).
func legBidPrice(leg *air.Leg, paths []*air.Path, bp map[int]float64) float64 {
	var vcs []virtualClass
	for _, p := range paths {
		w := prorationWeight(p, leg, bp)
		for _, pc := range p.Classes {
			if pc.FcstMean <= 0 {
				continue
			}
			vcs = append(vcs, virtualClass{
				fare:  pc.DecisionFare * w,
				mean:  pc.FcstMean,
				varce: pc.FcstStdev * pc.FcstStdev,
			})
		}
	}
	if len(vcs) == 0 {
		return 0
	}
	sort.Slice(vcs, func(i, j int) bool { return vcs[i].fare > vcs[j].fare })

	rem := float64(leg.Remaining())
	var mean, variance, best float64
	for _, vc := range vcs {
		mean += vc.mean
		variance += vc.varce
		var pExceed float64
		if sigma := math.Sqrt(variance); sigma < 1e-9 {
			if mean > rem {
				pExceed = 1
			}
		} else {
			pExceed = distuv.Normal{Mu: mean, Sigma: sigma}.Survival(rem)
		}
		best = math.Max(best, vc.fare*pExceed)
	}
	return best
}

// prorationWeight splits a path fare across its legs in proportion to the
// current bid prices, evenly when all are zero.
func prorationWeight(p *air.Path, leg *air.Leg, bp map[int]float64) float64 {
	var total float64
	for _, l := range p.Legs {
		total += bp[l.FltNo]
	}
	if total <= 0 {
		return 1.0 / float64(len(p.Legs))
	}
	return bp[leg.FltNo] / total
}

// AggregationStep converts path-level displacement-adjusted demand into
// leg-level bucket forecasts for a following EMSR step. A path class
// whose fare does not cover the displacement cost of the path's other
// legs contributes nothing to this leg.
type AggregationStep struct{}

func (s *AggregationStep) StepType() string { return "aggregation" }
func (s *AggregationStep) Kind() string     { return KindLeg }

func (s *AggregationStep) Run(ctx *Context) error {
	byLeg := make(map[int][]*air.Path)
	for _, p := range ctx.Paths {
		for _, leg := range p.Legs {
			byLeg[leg.FltNo] = append(byLeg[leg.FltNo], p)
		}
	}
	for _, leg := range ctx.Legs {
		for _, b := range leg.Buckets {
			var mean, variance float64
			for _, p := range byLeg[leg.FltNo] {
				pc := p.Class(b.Name)
				if pc == nil {
					continue
				}
				netFare := pc.DecisionFare - (pc.Displacement - leg.BidPrice)
				if netFare <= 0 {
					continue
				}
				mean += pc.FcstMean
				variance += pc.FcstStdev * pc.FcstStdev
			}
			b.FcstMean = mean
			b.FcstStdev = math.Sqrt(variance)
		}
	}
	return nil
}
