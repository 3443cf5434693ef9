package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maitreyeee/passengersim/sim/rm"
)

// Simulator runs the configured number of trials and feeds output records
// to a sink. Trials are independent: each gets its own scenario instance
// and its own seed partition, so running them in parallel changes nothing
// but wall-clock time.
type Simulator struct {
	cfg     *Config
	sc      *Scenario
	sink    Sink
	workers int
}

// NewSimulator validates the configuration once up front (the per-trial
// scenarios are rebuilt from the same config and cannot fail differently).
func NewSimulator(cfg *Config, sink Sink, workers int) (*Simulator, error) {
	sc, err := NewScenario(cfg)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &Simulator{cfg: cfg, sc: sc, sink: sink, workers: workers}, nil
}

// Scenario returns the validated network, for inspection commands.
func (s *Simulator) Scenario() *Scenario { return s.sc }

// Run executes all trials and returns the run summary. Records flow
// through a single writer goroutine, so the sink never sees concurrent
// writes.
func (s *Simulator) Run(ctx context.Context) (*Summary, error) {
	if err := s.sink.WriteDefs(s.sc); err != nil {
		return nil, fmt.Errorf("writing definitions: %w", err)
	}

	ctl := s.sc.Controls
	records := make(chan Record, 1024)
	writerDone := make(chan error, 1)
	go func() {
		for rec := range records {
			if err := s.sink.Write(rec); err != nil {
				writerDone <- err
				for range records {
				}
				return
			}
		}
		writerDone <- nil
	}()

	trials := make([]*TrialMetrics, ctl.NumTrials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for trial := 0; trial < ctl.NumTrials; trial++ {
		trial := trial
		g.Go(func() error {
			sc, err := NewScenario(s.cfg)
			if err != nil {
				return err
			}
			tm, err := runTrial(gctx, sc, trial, records)
			if err != nil {
				return fmt.Errorf("trial %d: %w", trial, err)
			}
			trials[trial] = tm
			return nil
		})
	}
	runErr := g.Wait()
	close(records)
	if err := <-writerDone; err != nil && runErr == nil {
		runErr = fmt.Errorf("writing records: %w", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	summary := summarize(s.sc, trials)
	for _, rec := range summary.Records() {
		if err := s.sink.Write(rec); err != nil {
			return nil, fmt.Errorf("writing summary: %w", err)
		}
	}
	return summary, nil
}

// runTrial executes one trial's full sample loop against its own scenario
// instance, emitting records for non-burn samples.
func runTrial(ctx context.Context, sc *Scenario, trial int, records chan<- Record) (*TrialMetrics, error) {
	ctl := sc.Controls
	gen := NewGenerator(ctl.RandomSeed, trial)
	engine := NewBookingEngine(sc)
	tm := NewTrialMetrics(trial)
	numDCPs := len(sc.DCPs)

	for _, cxr := range sc.Carriers {
		cxr.State.Reset()
	}

	for sample := 0; sample < ctl.NumSamples; sample++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gen.StartSample(sample)
		for _, leg := range sc.Legs {
			leg.PrepareSample(numDCPs)
		}
		for _, p := range sc.Paths {
			p.PrepareSample(numDCPs)
		}
		for _, f := range sc.Fares {
			f.PrepareSample(numDCPs)
		}
		for _, du := range sc.Demands {
			du.PrepareSample(numDCPs)
		}
		GenerateDemand(sc, gen)

		burn := sample < ctl.BurnSamples
		for t := 0; t < numDCPs; t++ {
			if err := engine.RunTimeframe(t, gen); err != nil {
				return nil, err
			}
			for _, leg := range sc.Legs {
				leg.CaptureDCP(t)
			}
			for _, p := range sc.Paths {
				p.CaptureDCP(t)
			}
			for _, f := range sc.Fares {
				f.CaptureDCP(t)
			}

			departed := t == numDCPs-1
			for _, cxr := range sc.Carriers {
				if departed {
					cxr.State.RecordSample(cxr.Legs, cxr.Paths)
				}
				rctx := &rm.Context{
					Carrier:  cxr.Name,
					Legs:     cxr.Legs,
					Paths:    cxr.Paths,
					DCPs:     sc.DCPs,
					DCPIndex: t,
					Departed: departed,
					State:    cxr.State,
				}
				if err := cxr.System.Run(rctx); err != nil {
					return nil, err
				}
			}

			if !burn {
				emitCheckpoint(sc, trial, sample, t, records)
			}
		}

		if !burn {
			for _, du := range sc.Demands {
				records <- DemandDetail{
					Scenario:     sc.Name,
					Trial:        trial,
					Sample:       sample,
					Orig:         du.Orig,
					Dest:         du.Dest,
					Segment:      du.Segment,
					SampleDemand: du.ScenarioDemand,
					Sold:         du.Sold,
					NoGo:         du.NoGo,
					Revenue:      du.Revenue,
				}
			}
			tm.AccumulateSample(sc)
		}
		logrus.Debugf("trial %d sample %d complete", trial, sample)
	}

	for _, rec := range tm.BookingsRecords(sc) {
		records <- rec
	}
	logrus.Infof("trial %d complete: %d samples (%d burn)", trial, ctl.NumSamples, ctl.BurnSamples)
	return tm, nil
}

// emitCheckpoint writes the per-checkpoint detail rows for one sample.
func emitCheckpoint(sc *Scenario, trial, sample, t int, records chan<- Record) {
	daysPrior := sc.DCPs[t]
	for _, leg := range sc.Legs {
		spilled := 0
		fcst := 0.0
		for _, b := range leg.Buckets {
			spilled += b.Spilled
			fcst += b.FcstMean
		}
		records <- LegDetail{
			Scenario:  sc.Name,
			Trial:     trial,
			Sample:    sample,
			DaysPrior: daysPrior,
			FltNo:     leg.FltNo,
			Sold:      leg.Sold,
			Revenue:   leg.Revenue,
			Demand:    float64(leg.Sold + spilled),
			FcstMean:  fcst,
			BidPrice:  leg.BidPrice,
		}
		for i, b := range leg.Buckets {
			records <- LegBucketDetail{
				Scenario:     sc.Name,
				Trial:        trial,
				Sample:       sample,
				DaysPrior:    daysPrior,
				FltNo:        leg.FltNo,
				BucketNumber: i,
				Name:         b.Name,
				Auth:         b.Auth,
				Sold:         b.Sold,
				Revenue:      b.Revenue,
				FcstMean:     b.FcstMean,
				FcstStdev:    b.FcstStdev,
			}
		}
	}
	for _, f := range sc.Fares {
		records <- FareDetail{
			Scenario:     sc.Name,
			Trial:        trial,
			Sample:       sample,
			DaysPrior:    daysPrior,
			FareID:       f.ID,
			Sold:         f.Sold,
			SoldBusiness: f.SoldBusiness,
		}
	}
}
