package rm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// UntruncationStep estimates unconstrained demand from capacity-truncated
// sales history. The real work happens at the terminal checkpoint, once
// the just-departed sample's observations are in history; the estimates it
// writes are the training inputs for the forecast step.
type UntruncationStep struct {
	Algorithm string // none, em, naive1, naive2
	kind      string
}

func (s *UntruncationStep) StepType() string { return "untruncation" }
func (s *UntruncationStep) Kind() string     { return s.kind }

func (s *UntruncationStep) Run(ctx *Context) error {
	if !ctx.Departed {
		return nil
	}
	switch s.kind {
	case KindLeg:
		for _, leg := range ctx.Legs {
			for _, b := range leg.Buckets {
				for t := 0; t < ctx.NumTF(); t++ {
					key := seriesKey{leg.FltNo, b.Name, t}
					ctx.State.legDemand[key] = s.estimate(ctx.State.legObs[key])
				}
			}
		}
	case KindPath:
		for _, p := range ctx.Paths {
			for _, pc := range p.Classes {
				for t := 0; t < ctx.NumTF(); t++ {
					key := seriesKey{p.ID, pc.Name, t}
					ctx.State.pathDemand[key] = s.estimate(ctx.State.pathObs[key])
				}
			}
		}
	}
	return nil
}

// estimate returns the unconstrained-demand estimate for the latest
// observation in the series.
func (s *UntruncationStep) estimate(obs []observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	latest := obs[len(obs)-1]
	if !latest.closed || s.Algorithm == "none" {
		return latest.sold
	}
	switch s.Algorithm {
	case "naive1":
		// Direct spill correction: demand = what sold plus what was turned
		// away at this class.
		return latest.sold + latest.spilled
	case "naive2":
		// Project the censored reading from the open observations.
		var sum float64
		var n int
		for _, o := range obs {
			if !o.closed {
				sum += o.sold
				n++
			}
		}
		if n == 0 {
			return latest.sold
		}
		return math.Max(latest.sold, sum/float64(n))
	case "em":
		return emEstimate(obs, latest.sold)
	}
	return latest.sold
}

// emEstimate runs expectation-maximization over the series, treating
// closed observations as right-censored at their sold counts, and returns
// the conditional mean for a censored reading at the given level.
func emEstimate(obs []observation, censoredAt float64) float64 {
	// M-step seed: moments of the raw readings.
	est := make([]float64, len(obs))
	for i, o := range obs {
		est[i] = o.sold
	}
	mu, sigma := moments(est)
	for iter := 0; iter < 50; iter++ {
		if sigma < 1e-6 {
			break
		}
		// E-step: replace censored readings by E[X | X >= c].
		for i, o := range obs {
			if o.closed {
				est[i] = censoredNormalMean(mu, sigma, o.sold)
			}
		}
		nmu, nsigma := moments(est)
		if math.Abs(nmu-mu) < 1e-4 && math.Abs(nsigma-sigma) < 1e-4 {
			mu, sigma = nmu, nsigma
			break
		}
		mu, sigma = nmu, nsigma
	}
	if sigma < 1e-6 {
		return math.Max(censoredAt, mu)
	}
	return math.Max(censoredAt, censoredNormalMean(mu, sigma, censoredAt))
}

// censoredNormalMean is E[X | X >= c] for X ~ N(mu, sigma), guarded
// against far-tail readings where the survival probability underflows.
func censoredNormalMean(mu, sigma, c float64) float64 {
	z := (c - mu) / sigma
	if z > 6 {
		return c
	}
	surv := distuv.UnitNormal.Survival(z)
	if surv < 1e-12 {
		return c
	}
	return mu + sigma*distuv.UnitNormal.Prob(z)/surv
}

func moments(xs []float64) (mean, stdev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}
