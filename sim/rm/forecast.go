package rm

import "math"

// ForecastStep turns untruncated demand history into forecast mean and
// stdev of demand still to come, written onto each bucket or path class.
//
// exp_smoothing keeps a per-timeframe running estimate updated once per
// departed sample: forecast = alpha*observed + (1-alpha)*prior. Variance
// is smoothed the same way from squared deviations.
//
// additive_pickup instead averages, over departed samples only, the
// bookings picked up between each checkpoint and departure, ignoring
// alpha. With no departed samples it falls back to PriorMean.
type ForecastStep struct {
	Algorithm string // exp_smoothing, additive_pickup
	Alpha     float64
	PriorMean float64
	kind      string
}

func (s *ForecastStep) StepType() string { return "forecast" }
func (s *ForecastStep) Kind() string     { return s.kind }

func (s *ForecastStep) Run(ctx *Context) error {
	if ctx.Departed {
		s.train(ctx)
	}
	s.project(ctx)
	return nil
}

// train folds the just-departed sample's untruncated estimates into the
// carrier's forecast state.
func (s *ForecastStep) train(ctx *Context) {
	st := ctx.State
	update := func(demand map[seriesKey]float64, mean, variance map[seriesKey]float64, n map[seriesKey]int, key seriesKey) {
		x := demand[key]
		if n[key] == 0 {
			mean[key] = x
			variance[key] = math.Max(x, 1) // Poisson-like prior spread until history accrues
			n[key] = 1
			return
		}
		d := x - mean[key]
		mean[key] = s.Alpha*x + (1-s.Alpha)*mean[key]
		variance[key] = s.Alpha*d*d + (1-s.Alpha)*variance[key]
		n[key]++
	}
	forKeys := func(ctx *Context, fn func(entity int, class string, tf int)) {
		if s.kind == KindLeg {
			for _, leg := range ctx.Legs {
				for _, b := range leg.Buckets {
					for t := 0; t < ctx.NumTF(); t++ {
						fn(leg.FltNo, b.Name, t)
					}
				}
			}
			return
		}
		for _, p := range ctx.Paths {
			for _, pc := range p.Classes {
				for t := 0; t < ctx.NumTF(); t++ {
					fn(p.ID, pc.Name, t)
				}
			}
		}
	}

	switch s.Algorithm {
	case "exp_smoothing":
		forKeys(ctx, func(entity int, class string, tf int) {
			key := seriesKey{entity, class, tf}
			if s.kind == KindLeg {
				update(st.legDemand, st.legFcstMean, st.legFcstVar, st.legFcstN, key)
			} else {
				update(st.pathDemand, st.pathFcstMean, st.pathFcstVar, st.pathFcstN, key)
			}
		})
	case "additive_pickup":
		// Accumulate pickup-to-departure per checkpoint from this sample's
		// untruncated per-timeframe demand.
		demand := st.legDemand
		if s.kind == KindPath {
			demand = st.pathDemand
		}
		forKeys(ctx, func(entity int, class string, tf int) {
			if tf != 0 {
				return // iterate entities/classes once, via tf==0
			}
			for d := 0; d < ctx.NumTF(); d++ {
				var pickup float64
				for t := d + 1; t < ctx.NumTF(); t++ {
					pickup += demand[seriesKey{entity, class, t}]
				}
				key := seriesKey{entity, class, d}
				st.pickupSum[key] += pickup
				st.pickupSq[key] += pickup * pickup
				st.pickupN[key]++
			}
		})
	}
}

// project writes demand-to-come forecasts for the current checkpoint onto
// the carrier's buckets or path classes.
func (s *ForecastStep) project(ctx *Context) {
	mean, stdev := s.projector(ctx)
	if s.kind == KindLeg {
		for _, leg := range ctx.Legs {
			for _, b := range leg.Buckets {
				b.FcstMean = mean(leg.FltNo, b.Name)
				b.FcstStdev = stdev(leg.FltNo, b.Name)
			}
		}
		return
	}
	for _, p := range ctx.Paths {
		for _, pc := range p.Classes {
			pc.FcstMean = mean(p.ID, pc.Name)
			pc.FcstStdev = stdev(p.ID, pc.Name)
		}
	}
}

// projector returns mean/stdev lookups for demand to come after the
// current checkpoint.
func (s *ForecastStep) projector(ctx *Context) (func(int, string) float64, func(int, string) float64) {
	st := ctx.State
	switch s.Algorithm {
	case "additive_pickup":
		d := ctx.DCPIndex
		meanFn := func(entity int, class string) float64 {
			key := seriesKey{entity, class, d}
			if st.pickupN[key] == 0 {
				return s.PriorMean
			}
			return st.pickupSum[key] / float64(st.pickupN[key])
		}
		stdevFn := func(entity int, class string) float64 {
			key := seriesKey{entity, class, d}
			n := float64(st.pickupN[key])
			if n < 2 {
				return math.Sqrt(math.Max(meanFn(entity, class), 0))
			}
			m := st.pickupSum[key] / n
			v := st.pickupSq[key]/n - m*m
			return math.Sqrt(math.Max(v, 0))
		}
		return meanFn, stdevFn
	default: // exp_smoothing
		fm, fv := st.legFcstMean, st.legFcstVar
		if s.kind == KindPath {
			fm, fv = st.pathFcstMean, st.pathFcstVar
		}
		meanFn := func(entity int, class string) float64 {
			m, _ := demandToCome(fm, fv, entity, class, ctx.DCPIndex, ctx.NumTF())
			return m
		}
		stdevFn := func(entity int, class string) float64 {
			_, v := demandToCome(fm, fv, entity, class, ctx.DCPIndex, ctx.NumTF())
			return math.Sqrt(math.Max(v, 0))
		}
		return meanFn, stdevFn
	}
}
