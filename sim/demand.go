package sim

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// GenerateDemand realizes demand for every unit in the scenario for the
// current sample and allocates it across timeframes.
//
// The k-factor model: one system draw (SRN) correlates the whole sample,
// one draw per market (MRN) and one per (market, segment) pair (PRN)
// layer in market- and passenger-type-level correlation. The adjusted
// mean is
//
//	mu = base * (1 + SRN*sys_k + MRN*mkt_k + PRN*pax_type_k)
//
// with sigma derived from the z-factor (z = mu/sigma^2), and the realized
// total mu + sigma*NRV rounded half-up to an integer. Negative tails are
// clamped to zero; that is expected behavior for thin markets, not an
// error.
func GenerateDemand(sc *Scenario, gen *Generator) {
	ctl := sc.Controls
	rng := gen.Stream(StreamDemand)
	tfRng := gen.Stream(StreamTimeframe)

	srn := rng.NormFloat64()
	mrn := make(map[odKey]float64)
	prn := make(map[segKey]float64)

	for _, du := range sc.Demands {
		mk := odKey{du.Orig, du.Dest}
		if _, ok := mrn[mk]; !ok {
			mrn[mk] = rng.NormFloat64()
		}
		pk := segKey{du.Orig, du.Dest, du.Segment}
		if _, ok := prn[pk]; !ok {
			prn[pk] = rng.NormFloat64()
		}

		mu := du.BaseDemand * (1 + srn*ctl.SysKFactor + mrn[mk]*ctl.MktKFactor + prn[pk]*ctl.PaxTypeKFactor)
		if mu < 0 {
			logrus.Debugf("demand %s-%s %s: adjusted mean %.3f clamped to 0", du.Orig, du.Dest, du.Segment, mu)
			mu = 0
		}
		sigma := math.Sqrt(mu / ctl.ZFactor)
		n := mu + sigma*rng.NormFloat64()
		if n < 0 {
			n = 0
		}
		total := int(n + 0.5) // round half up

		du.ScenarioDemand = total
		du.ByTimeframe = allocateTimeframes(total, du.Curve.Increments(sc.DCPs), ctl.TFKFactor, tfRng)
	}
}

type segKey struct {
	orig, dest, segment string
}

// normSource is the subset of *rand.Rand the allocator draws from.
type normSource interface {
	NormFloat64() float64
}

// allocateTimeframes spreads total arrivals over the timeframes in
// proportion to the booking-curve increments, each perturbed by
// tf_k_factor noise, then integerized by largest remainder so the
// allocation sums exactly to total.
func allocateTimeframes(total int, increments []float64, tfK float64, rng normSource) []int {
	n := len(increments)
	alloc := make([]int, n)
	if total == 0 {
		return alloc
	}

	weights := make([]float64, n)
	var sum float64
	for t, inc := range increments {
		w := inc * (1 + tfK*rng.NormFloat64())
		if w < 0 {
			w = 0
		}
		weights[t] = w
		sum += w
	}
	if sum <= 0 {
		// Noise wiped out every weight; fall back to the raw curve.
		copy(weights, increments)
		sum = 0
		for _, w := range weights {
			sum += w
		}
		if sum <= 0 {
			alloc[n-1] = total
			return alloc
		}
	}

	type frac struct {
		idx int
		rem float64
	}
	fracs := make([]frac, n)
	assigned := 0
	for t, w := range weights {
		target := float64(total) * w / sum
		alloc[t] = int(target)
		assigned += alloc[t]
		fracs[t] = frac{t, target - float64(alloc[t])}
	}
	sort.SliceStable(fracs, func(i, j int) bool { return fracs[i].rem > fracs[j].rem })
	for i := 0; assigned < total; i++ {
		alloc[fracs[i%n].idx]++
		assigned++
	}
	return alloc
}
