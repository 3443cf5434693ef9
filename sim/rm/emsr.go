package rm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maitreyeee/passengersim/sim/air"
)

// EMSRStep recomputes nested booking-class authorizations from the
// demand-to-come forecasts on each leg, using expected marginal seat
// revenue. Variant a sums per-class protections; variant b protects the
// aggregate of the higher classes at their revenue-weighted fare. The
// fcfs variant opens every class to the remaining capacity.
type EMSRStep struct {
	Algorithm string // emsra, emsrb, fcfs
}

func (s *EMSRStep) StepType() string { return "emsr" }
func (s *EMSRStep) Kind() string     { return KindLeg }

func (s *EMSRStep) Run(ctx *Context) error {
	for _, leg := range ctx.Legs {
		if s.Algorithm == "fcfs" {
			openAll(leg)
			continue
		}
		s.optimizeLeg(leg)
		if ctx.Control != ControlBP {
			leg.BidPrice = marginalValue(leg)
		}
	}
	return nil
}

func (s *EMSRStep) optimizeLeg(leg *air.Leg) {
	n := len(leg.Buckets)
	remaining := leg.Remaining()
	if n == 0 {
		return
	}

	// protection[j]: seats protected for classes 0..j against class j+1
	// and below. Forced non-decreasing in j so authorizations nest.
	protection := make([]float64, n-1)
	prev := 0.0
	for j := 0; j < n-1; j++ {
		nextFare := leg.Buckets[j+1].DecisionFare
		var pi float64
		if s.Algorithm == "emsra" {
			for i := 0; i <= j; i++ {
				pi += classProtection(leg.Buckets[i], nextFare)
			}
		} else {
			pi = jointProtection(leg.Buckets[:j+1], nextFare)
		}
		pi = math.Max(pi, prev)
		protection[j] = pi
		prev = pi
	}

	for j, b := range leg.Buckets {
		auth := remaining
		if j > 0 {
			auth = remaining - int(math.Round(protection[j-1]))
		}
		if auth < 0 {
			auth = 0
		}
		b.Auth = auth
	}
}

// classProtection is the EMSRa term: seats protected for one class
// against a lower fare, via the marginal-revenue equalization
// fare_low = fare_high * P(D > pi).
func classProtection(b *air.Bucket, lowFare float64) float64 {
	if b.DecisionFare <= 0 || lowFare >= b.DecisionFare {
		return 0
	}
	ratio := lowFare / b.DecisionFare
	if b.FcstStdev < 1e-9 {
		// Degenerate variance: protect the whole mean.
		return math.Max(b.FcstMean, 0)
	}
	dist := distuv.Normal{Mu: b.FcstMean, Sigma: b.FcstStdev}
	return math.Max(dist.Quantile(1-ratio), 0)
}

// jointProtection is the EMSRb protection of an aggregated class whose
// fare is the revenue-weighted mean of the member fares.
func jointProtection(higher []*air.Bucket, lowFare float64) float64 {
	var mean, variance, weighted float64
	for _, b := range higher {
		mean += b.FcstMean
		variance += b.FcstStdev * b.FcstStdev
		weighted += b.DecisionFare * b.FcstMean
	}
	if mean <= 0 {
		return 0
	}
	avgFare := weighted / mean
	if avgFare <= 0 || lowFare >= avgFare {
		return 0
	}
	ratio := lowFare / avgFare
	sigma := math.Sqrt(variance)
	if sigma < 1e-9 {
		return mean
	}
	dist := distuv.Normal{Mu: mean, Sigma: sigma}
	return math.Max(dist.Quantile(1-ratio), 0)
}

// marginalValue is the expected marginal revenue of the leg's next seat:
// the revenue-weighted fare times the probability that total demand to
// come exceeds the remaining capacity.
func marginalValue(leg *air.Leg) float64 {
	var mean, variance, weighted float64
	for _, b := range leg.Buckets {
		mean += b.FcstMean
		variance += b.FcstStdev * b.FcstStdev
		weighted += b.DecisionFare * b.FcstMean
	}
	if mean <= 0 {
		return 0
	}
	avgFare := weighted / mean
	sigma := math.Sqrt(variance)
	rem := float64(leg.Remaining())
	if sigma < 1e-9 {
		if mean > rem {
			return avgFare
		}
		return 0
	}
	dist := distuv.Normal{Mu: mean, Sigma: sigma}
	return avgFare * dist.Survival(rem)
}

func openAll(leg *air.Leg) {
	remaining := leg.Remaining()
	for _, b := range leg.Buckets {
		b.Auth = remaining
	}
	leg.BidPrice = 0
}

// FCFSStep is the explicit no-op control: every class open to the full
// remaining capacity, no protection, no bid price.
type FCFSStep struct{}

func (s *FCFSStep) StepType() string { return "fcfs" }
func (s *FCFSStep) Kind() string     { return KindLeg }

func (s *FCFSStep) Run(ctx *Context) error {
	for _, leg := range ctx.Legs {
		openAll(leg)
	}
	return nil
}
