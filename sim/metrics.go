package sim

import (
	"fmt"
	"sort"

	"github.com/maitreyeee/passengersim/sim/air"
)

type tfKey struct {
	carrier string
	class   string
	tf      int
}

type legKey struct {
	fltNo int
}

// TrialMetrics accumulates per-trial aggregates over non-burn samples.
// One instance belongs to one trial goroutine, so no locking.
type TrialMetrics struct {
	Trial   int
	Samples int

	tfSold     map[tfKey]float64
	tfBusiness map[tfKey]float64
	tfRevenue  map[tfKey]float64

	carrierRevenue map[string]float64
	carrierSold    map[string]float64
	carrierASM     map[string]float64
	carrierRPM     map[string]float64

	legSold    map[legKey]float64
	legRevenue map[legKey]float64
}

func NewTrialMetrics(trial int) *TrialMetrics {
	return &TrialMetrics{
		Trial:          trial,
		tfSold:         make(map[tfKey]float64),
		tfBusiness:     make(map[tfKey]float64),
		tfRevenue:      make(map[tfKey]float64),
		carrierRevenue: make(map[string]float64),
		carrierSold:    make(map[string]float64),
		carrierASM:     make(map[string]float64),
		carrierRPM:     make(map[string]float64),
		legSold:        make(map[legKey]float64),
		legRevenue:     make(map[legKey]float64),
	}
}

// AccumulateSample folds one completed non-burn sample into the trial
// aggregates. Timeframe increments come from the checkpoint snapshots on
// each fare.
func (tm *TrialMetrics) AccumulateSample(sc *Scenario) {
	tm.Samples++

	for _, f := range sc.Fares {
		prevSold, prevBiz := 0, 0
		for t := range f.SoldByDCP {
			dSold := f.SoldByDCP[t] - prevSold
			dBiz := f.SoldBusinessByDCP[t] - prevBiz
			prevSold = f.SoldByDCP[t]
			prevBiz = f.SoldBusinessByDCP[t]
			if dSold == 0 {
				continue
			}
			k := tfKey{f.Carrier, f.BookingClass, t}
			tm.tfSold[k] += float64(dSold)
			tm.tfBusiness[k] += float64(dBiz)
			tm.tfRevenue[k] += float64(dSold) * f.Price
		}
	}

	for _, cxr := range sc.Carriers {
		for _, leg := range cxr.Legs {
			tm.carrierRevenue[cxr.Name] += leg.Revenue
			tm.carrierSold[cxr.Name] += float64(leg.Sold)
			tm.carrierASM[cxr.Name] += float64(leg.Capacity) * leg.Distance
			tm.carrierRPM[cxr.Name] += float64(leg.Sold) * leg.Distance
			k := legKey{leg.FltNo}
			tm.legSold[k] += float64(leg.Sold)
			tm.legRevenue[k] += leg.Revenue
		}
	}
}

// BookingsRecords produces the trial's bookings_by_timeframe rows, in a
// deterministic order.
func (tm *TrialMetrics) BookingsRecords(sc *Scenario) []Record {
	keys := make([]tfKey, 0, len(tm.tfSold))
	for k := range tm.tfSold {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.carrier != b.carrier {
			return a.carrier < b.carrier
		}
		if a.class != b.class {
			return a.class < b.class
		}
		return a.tf < b.tf
	})

	recs := make([]Record, 0, len(keys))
	n := float64(tm.Samples)
	if n == 0 {
		return recs
	}
	for _, k := range keys {
		sold := tm.tfSold[k]
		biz := tm.tfBusiness[k]
		rev := tm.tfRevenue[k]
		avgPrice := 0.0
		if sold > 0 {
			avgPrice = rev / sold
		}
		recs = append(recs, BookingsByTimeframe{
			Scenario:     sc.Name,
			Trial:        tm.Trial,
			Carrier:      k.carrier,
			BookingClass: k.class,
			DaysPrior:    sc.DCPs[k.tf],
			TotSold:      sold,
			AvgSold:      sold / n,
			AvgBusiness:  biz / n,
			AvgLeisure:   (sold - biz) / n,
			AvgRevenue:   rev / n,
			AvgPrice:     avgPrice,
		})
	}
	return recs
}

// CarrierResult is one carrier's averaged outcome across a whole run.
type CarrierResult struct {
	Carrier    string
	AvgRevenue float64
	AvgSold    float64
	LoadFactor float64
	Yield      float64
}

// LegResult is one leg's averaged outcome across a whole run.
type LegResult struct {
	Leg        *air.Leg
	AvgSold    float64
	AvgRevenue float64
	LoadFactor float64
}

// Summary is the run-level rollup over all trials' non-burn samples.
type Summary struct {
	Scenario string
	Trials   int
	Samples  int // non-burn samples per trial
	Carriers []CarrierResult
	Legs     []LegResult
}

func summarize(sc *Scenario, trials []*TrialMetrics) *Summary {
	sum := &Summary{Scenario: sc.Name, Trials: len(trials)}
	if len(trials) == 0 {
		return sum
	}
	sum.Samples = trials[0].Samples

	totalSamples := 0.0
	for _, tm := range trials {
		totalSamples += float64(tm.Samples)
	}
	if totalSamples == 0 {
		return sum
	}

	for _, cxr := range sc.Carriers {
		var rev, sold, asm, rpm float64
		for _, tm := range trials {
			rev += tm.carrierRevenue[cxr.Name]
			sold += tm.carrierSold[cxr.Name]
			asm += tm.carrierASM[cxr.Name]
			rpm += tm.carrierRPM[cxr.Name]
		}
		res := CarrierResult{
			Carrier:    cxr.Name,
			AvgRevenue: rev / totalSamples,
			AvgSold:    sold / totalSamples,
		}
		if asm > 0 {
			res.LoadFactor = rpm / asm
		}
		if rpm > 0 {
			res.Yield = rev / rpm
		}
		sum.Carriers = append(sum.Carriers, res)
	}

	for _, leg := range sc.Legs {
		var sold, rev float64
		for _, tm := range trials {
			sold += tm.legSold[legKey{leg.FltNo}]
			rev += tm.legRevenue[legKey{leg.FltNo}]
		}
		res := LegResult{
			Leg:        leg,
			AvgSold:    sold / totalSamples,
			AvgRevenue: rev / totalSamples,
		}
		if leg.Capacity > 0 {
			res.LoadFactor = res.AvgSold / float64(leg.Capacity)
		}
		sum.Legs = append(sum.Legs, res)
	}
	return sum
}

// Records renders the summary as persistable rows.
func (s *Summary) Records() []Record {
	recs := make([]Record, 0, len(s.Carriers)+len(s.Legs))
	for _, c := range s.Carriers {
		recs = append(recs, CarrierSummary{
			Scenario:   s.Scenario,
			Carrier:    c.Carrier,
			AvgRevenue: c.AvgRevenue,
			AvgSold:    c.AvgSold,
			LoadFactor: c.LoadFactor,
			Yield:      c.Yield,
		})
	}
	for _, l := range s.Legs {
		recs = append(recs, LegSummary{
			Scenario:   s.Scenario,
			FltNo:      l.Leg.FltNo,
			Carrier:    l.Leg.Carrier,
			Orig:       l.Leg.Orig,
			Dest:       l.Leg.Dest,
			AvgSold:    l.AvgSold,
			AvgRevenue: l.AvgRevenue,
			LoadFactor: l.LoadFactor,
		})
	}
	return recs
}

// Print writes a readable report to stdout.
func (s *Summary) Print() {
	fmt.Printf("Scenario: %s (%d trials x %d samples)\n", s.Scenario, s.Trials, s.Samples)
	fmt.Println("Carrier    AvgRevenue    AvgSold    LoadFactor    Yield")
	for _, c := range s.Carriers {
		fmt.Printf("%-10s %12.2f %10.2f %12.3f %8.4f\n",
			c.Carrier, c.AvgRevenue, c.AvgSold, c.LoadFactor, c.Yield)
	}
	fmt.Println()
	fmt.Println("Leg        Carrier    AvgSold    AvgRevenue    LoadFactor")
	for _, l := range s.Legs {
		fmt.Printf("%-10d %-10s %10.2f %12.2f %12.3f\n",
			l.Leg.FltNo, l.Leg.Carrier, l.AvgSold, l.AvgRevenue, l.LoadFactor)
	}
}
