// Package rm implements the revenue-management pipeline: per-carrier
// ordered step lists of untruncation, forecasting, and optimization that
// run at every data collection point.
package rm

import (
	"github.com/maitreyeee/passengersim/sim/air"
)

// seriesKey addresses one demand series: an entity (leg flight number or
// path id), a booking class, and a timeframe index.
type seriesKey struct {
	entity int
	class  string
	tf     int
}

// observation is what one departed sample contributed to a series:
// incremental bookings in the timeframe, denied arrivals, and whether the
// class was closed (making the sold count a censored reading of demand).
type observation struct {
	sold    float64
	spilled float64
	closed  bool
}

// CarrierState is the mutable RM memory of one carrier within one trial.
// It accumulates observation histories from departed samples and carries
// the forecast state the steps maintain across samples. Reset at trial
// start; never shared across trials.
type CarrierState struct {
	departed int

	legObs  map[seriesKey][]observation
	pathObs map[seriesKey][]observation

	// Untruncated per-timeframe demand estimates for the most recent
	// departed sample, written by the untruncation step and consumed by
	// the forecast step.
	legDemand  map[seriesKey]float64
	pathDemand map[seriesKey]float64

	// Exponentially smoothed per-timeframe forecast mean and variance.
	legFcstMean map[seriesKey]float64
	legFcstVar  map[seriesKey]float64
	legFcstN    map[seriesKey]int

	pathFcstMean map[seriesKey]float64
	pathFcstVar  map[seriesKey]float64
	pathFcstN    map[seriesKey]int

	// Additive-pickup accumulators keyed by (entity, class, checkpoint):
	// sum and sum-of-squares of observed pickup from that checkpoint to
	// departure, over departed samples.
	pickupSum map[seriesKey]float64
	pickupSq  map[seriesKey]float64
	pickupN   map[seriesKey]int
}

// NewCarrierState returns empty RM memory.
func NewCarrierState() *CarrierState {
	s := &CarrierState{}
	s.Reset()
	return s
}

// Reset clears all accumulated history and forecasts. Called at the start
// of every trial.
func (s *CarrierState) Reset() {
	s.departed = 0
	s.legObs = make(map[seriesKey][]observation)
	s.pathObs = make(map[seriesKey][]observation)
	s.legDemand = make(map[seriesKey]float64)
	s.pathDemand = make(map[seriesKey]float64)
	s.legFcstMean = make(map[seriesKey]float64)
	s.legFcstVar = make(map[seriesKey]float64)
	s.legFcstN = make(map[seriesKey]int)
	s.pathFcstMean = make(map[seriesKey]float64)
	s.pathFcstVar = make(map[seriesKey]float64)
	s.pathFcstN = make(map[seriesKey]int)
	s.pickupSum = make(map[seriesKey]float64)
	s.pickupSq = make(map[seriesKey]float64)
	s.pickupN = make(map[seriesKey]int)
}

// DepartedSamples is the number of samples recorded into history.
func (s *CarrierState) DepartedSamples() int {
	return s.departed
}

// RecordSample appends the just-departed sample's per-timeframe
// observations, taken from the DCP capture arrays on the carrier's legs
// and paths. The controller calls this after the final capture and before
// the terminal pipeline run, so untruncation and forecast training see the
// new sample.
func (s *CarrierState) RecordSample(legs []*air.Leg, paths []*air.Path) {
	for _, leg := range legs {
		for _, b := range leg.Buckets {
			for t := range b.SoldByDCP {
				key := seriesKey{leg.FltNo, b.Name, t}
				prev, prevSp := 0, 0
				if t > 0 {
					prev = b.SoldByDCP[t-1]
					prevSp = b.SpilledByDCP[t-1]
				}
				s.legObs[key] = append(s.legObs[key], observation{
					sold:    float64(b.SoldByDCP[t] - prev),
					spilled: float64(b.SpilledByDCP[t] - prevSp),
					closed:  b.ClosedInTF[t],
				})
			}
		}
	}
	for _, p := range paths {
		for _, pc := range p.Classes {
			for t := range pc.SoldByDCP {
				key := seriesKey{p.ID, pc.Name, t}
				prev := 0
				if t > 0 {
					prev = pc.SoldByDCP[t-1]
				}
				s.pathObs[key] = append(s.pathObs[key], observation{
					sold:   float64(pc.SoldByDCP[t] - prev),
					closed: pc.ClosedInTF[t],
				})
			}
		}
	}
	s.departed++
}

// demandToCome sums the smoothed per-timeframe forecast for timeframes
// strictly after the given checkpoint. Returns mean and variance.
func demandToCome(mean, variance map[seriesKey]float64, entity int, class string, after, numTF int) (float64, float64) {
	var m, v float64
	for t := after + 1; t < numTF; t++ {
		key := seriesKey{entity, class, t}
		m += mean[key]
		v += variance[key]
	}
	return m, v
}
