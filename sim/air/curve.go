package air

import (
	"fmt"
	"sort"
)

// BookingCurve maps days prior to departure to the cumulative fraction of
// total demand that has arrived by that point. Fractions are
// non-decreasing toward departure and the last configured point is 1.0.
type BookingCurve struct {
	Name string

	daysPrior []int // sorted decreasing
	fraction  []float64
}

// NewBookingCurve validates and builds a curve from a days-prior→fraction
// mapping.
func NewBookingCurve(name string, points map[int]float64) (*BookingCurve, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("booking curve %q has no points", name)
	}
	c := &BookingCurve{Name: name}
	for d := range points {
		c.daysPrior = append(c.daysPrior, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(c.daysPrior)))
	prev := 0.0
	for _, d := range c.daysPrior {
		f := points[d]
		if f < 0 || f > 1 {
			return nil, fmt.Errorf("booking curve %q: fraction %v at %d days prior out of [0,1]", name, f, d)
		}
		if f < prev {
			return nil, fmt.Errorf("booking curve %q: fraction decreases at %d days prior", name, d)
		}
		c.fraction = append(c.fraction, f)
		prev = f
	}
	last := c.fraction[len(c.fraction)-1]
	if last != 1.0 {
		return nil, fmt.Errorf("booking curve %q: terminal fraction is %v, want 1.0", name, last)
	}
	return c, nil
}

// CumulativeAt returns the fraction of demand arrived by daysPrior,
// linearly interpolated between configured points. Days earlier than the
// first point report that point's fraction; departure day reports 1.0.
func (c *BookingCurve) CumulativeAt(daysPrior int) float64 {
	if daysPrior <= 0 {
		return 1.0
	}
	if daysPrior >= c.daysPrior[0] {
		return c.fraction[0]
	}
	for i := 1; i < len(c.daysPrior); i++ {
		hi, lo := c.daysPrior[i-1], c.daysPrior[i]
		if daysPrior > lo {
			// between points i-1 and i
			span := float64(hi - lo)
			w := float64(hi-daysPrior) / span
			return c.fraction[i-1] + w*(c.fraction[i]-c.fraction[i-1])
		}
		if daysPrior == lo {
			return c.fraction[i]
		}
	}
	return 1.0
}

// Increments returns the incremental demand fraction arriving in each
// timeframe defined by the dcps checkpoints. Timeframe t covers the
// interval ending at dcps[t]; timeframe 0 includes everything booked
// before the first checkpoint. The increments sum to 1.0.
func (c *BookingCurve) Increments(dcps []int) []float64 {
	inc := make([]float64, len(dcps))
	prev := 0.0
	for t, d := range dcps {
		cum := c.CumulativeAt(d)
		inc[t] = cum - prev
		prev = cum
	}
	return inc
}
