package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/maitreyeee/passengersim/sim/air"
	"github.com/maitreyeee/passengersim/sim/rm"
)

// Carrier is one airline in the scenario: its slice of the network plus
// its RM system (shared by reference, immutable) and RM state (owned,
// mutable, reset per trial).
type Carrier struct {
	Name   string
	System *rm.System
	State  *rm.CarrierState

	Legs  []*air.Leg
	Paths []*air.Path
}

type odKey struct {
	orig, dest string
}

// Scenario is the fully-linked, validated network a run executes against.
// Everything here except carrier RM state and the per-sample counters on
// the entities is immutable once built.
type Scenario struct {
	Name     string
	Controls ControlsConfig
	Classes  []string
	DCPs     []int

	Curves       map[string]*air.BookingCurve
	ChoiceModels map[string]*ChoiceModel
	Carriers     []*Carrier
	Legs         []*air.Leg
	Paths        []*air.Path
	Fares        []*air.Fare
	Demands      []*air.DemandUnit

	pathsByMarket map[odKey][]*air.Path
	faresByMarket map[odKey][]*air.Fare
}

// NewScenario validates a Config and assembles the network. All
// cross-reference problems (unknown RM system, missing curve, dangling
// leg number) are configuration errors reported here, before any
// simulation work starts.
func NewScenario(cfg *Config) (*Scenario, error) {
	if err := validateControls(&cfg.Controls); err != nil {
		return nil, err
	}
	if len(cfg.Classes) == 0 {
		return nil, configErrorf("no booking classes defined")
	}
	if err := validateDCPs(cfg.DCPs); err != nil {
		return nil, err
	}

	s := &Scenario{
		Name:          cfg.Scenario,
		Controls:      cfg.Controls,
		Classes:       cfg.Classes,
		DCPs:          cfg.DCPs,
		Curves:        make(map[string]*air.BookingCurve),
		ChoiceModels:  make(map[string]*ChoiceModel),
		pathsByMarket: make(map[odKey][]*air.Path),
		faresByMarket: make(map[odKey][]*air.Fare),
	}
	if s.Name == "" {
		s.Name = "untitled"
	}

	systems := make(map[string]*rm.System)
	for name, rsCfg := range cfg.RMSystems {
		sys, err := rm.NewSystem(name, rsCfg.AvailabilityControl, rsCfg.Steps)
		if err != nil {
			return nil, configErrorf("%v", err)
		}
		systems[name] = sys
	}

	for name, cmCfg := range cfg.ChoiceModels {
		cm, err := NewChoiceModel(name, cmCfg)
		if err != nil {
			return nil, err
		}
		s.ChoiceModels[name] = cm
	}

	for name, cCfg := range cfg.BookingCurves {
		curve, err := air.NewBookingCurve(name, cCfg.Curve)
		if err != nil {
			return nil, configErrorf("%v", err)
		}
		s.Curves[name] = curve
	}

	carriers := make(map[string]*Carrier)
	for name, aCfg := range cfg.Airlines {
		sys, ok := systems[aCfg.RMSystem]
		if !ok {
			return nil, configErrorf("airline %s references unknown rm_system %q", name, aCfg.RMSystem)
		}
		carriers[name] = &Carrier{Name: name, System: sys, State: rm.NewCarrierState()}
	}
	if len(carriers) == 0 {
		return nil, configErrorf("no airlines defined")
	}

	miles := make(map[odKey]float64)
	for _, d := range cfg.Distances {
		miles[odKey{d.Orig, d.Dest}] = d.Miles
		miles[odKey{d.Dest, d.Orig}] = d.Miles
	}

	legsByFltNo := make(map[int]*air.Leg)
	for _, lc := range cfg.Legs {
		if _, dup := legsByFltNo[lc.FltNo]; dup {
			return nil, configErrorf("duplicate leg fltno %d", lc.FltNo)
		}
		cxr, ok := carriers[lc.Carrier]
		if !ok {
			return nil, configErrorf("leg %d references unknown carrier %q", lc.FltNo, lc.Carrier)
		}
		if lc.Capacity <= 0 {
			return nil, configErrorf("leg %d has capacity %d", lc.FltNo, lc.Capacity)
		}
		leg := air.NewLeg(lc.FltNo, lc.Carrier, lc.Orig, lc.Dest, lc.Capacity, cfg.Classes)
		var err error
		if leg.DepTime, err = parseClock(lc.DepTime); err != nil {
			return nil, configErrorf("leg %d: %v", lc.FltNo, err)
		}
		if leg.ArrTime, err = parseClock(lc.ArrTime); err != nil {
			return nil, configErrorf("leg %d: %v", lc.FltNo, err)
		}
		leg.Distance = lc.Distance
		if leg.Distance == 0 {
			leg.Distance = miles[odKey{lc.Orig, lc.Dest}]
		}
		legsByFltNo[lc.FltNo] = leg
		s.Legs = append(s.Legs, leg)
		cxr.Legs = append(cxr.Legs, leg)
	}
	if len(s.Legs) == 0 {
		return nil, configErrorf("no legs defined")
	}

	for i, fc := range cfg.Fares {
		if _, ok := carriers[fc.Carrier]; !ok {
			return nil, configErrorf("fare %s %s-%s %s references unknown carrier", fc.Carrier, fc.Orig, fc.Dest, fc.BookingClass)
		}
		if !classKnown(cfg.Classes, fc.BookingClass) {
			return nil, configErrorf("fare %s %s-%s references unknown booking class %q", fc.Carrier, fc.Orig, fc.Dest, fc.BookingClass)
		}
		ap := fc.AdvancePurchase
		if cfg.Controls.DisableAP {
			ap = 0
		}
		fare := &air.Fare{
			ID:              i + 1,
			Carrier:         fc.Carrier,
			Orig:            fc.Orig,
			Dest:            fc.Dest,
			BookingClass:    fc.BookingClass,
			Price:           fc.Price,
			AdvancePurchase: ap,
			Restrictions:    fc.Restrictions,
			Category:        fc.Category,
		}
		s.Fares = append(s.Fares, fare)
		s.faresByMarket[odKey{fc.Orig, fc.Dest}] = append(s.faresByMarket[odKey{fc.Orig, fc.Dest}], fare)
	}

	// Decision fares on leg buckets: the price of the carrier's own
	// local fare in the leg's market.
	for _, leg := range s.Legs {
		for _, fare := range s.faresByMarket[odKey{leg.Orig, leg.Dest}] {
			if fare.Carrier != leg.Carrier {
				continue
			}
			if b := leg.Bucket(fare.BookingClass); b != nil {
				b.DecisionFare = fare.Price
			}
		}
	}

	for i, pc := range cfg.Paths {
		var legs []*air.Leg
		for _, fltNo := range pc.Legs {
			leg, ok := legsByFltNo[fltNo]
			if !ok {
				return nil, configErrorf("path %s-%s references unknown leg %d", pc.Orig, pc.Dest, fltNo)
			}
			legs = append(legs, leg)
		}
		p, err := air.NewPath(i+1, legs, pc.PathQualityIndex, cfg.Classes)
		if err != nil {
			return nil, configErrorf("%v", err)
		}
		if p.Orig != pc.Orig || p.Dest != pc.Dest {
			return nil, configErrorf("path %s-%s legs connect %s-%s", pc.Orig, pc.Dest, p.Orig, p.Dest)
		}
		for _, cls := range p.Classes {
			for _, fare := range s.faresByMarket[odKey{p.Orig, p.Dest}] {
				if fare.Carrier == p.Carrier() && fare.BookingClass == cls.Name {
					cls.DecisionFare = fare.Price
				}
			}
		}
		s.Paths = append(s.Paths, p)
		s.pathsByMarket[odKey{p.Orig, p.Dest}] = append(s.pathsByMarket[odKey{p.Orig, p.Dest}], p)
		carriers[p.Carrier()].Paths = append(carriers[p.Carrier()].Paths, p)
	}

	for _, dc := range cfg.Demands {
		du := &air.DemandUnit{
			Orig:            dc.Orig,
			Dest:            dc.Dest,
			Segment:         dc.Segment,
			BaseDemand:      dc.BaseDemand * cfg.Controls.DemandMultiplier,
			ReferenceFare:   dc.ReferenceFare,
			ChoiceModelName: dc.ChoiceModel,
			CurveName:       dc.Curve,
			Business:        dc.Segment == "business" || dc.ChoiceModel == "business",
			Distance:        miles[odKey{dc.Orig, dc.Dest}],
		}
		curve, ok := s.Curves[dc.Curve]
		if !ok {
			return nil, configErrorf("demand %s-%s %s references unknown booking curve %q", dc.Orig, dc.Dest, dc.Segment, dc.Curve)
		}
		du.Curve = curve
		if _, ok := s.ChoiceModels[du.ChoiceModel()]; !ok {
			return nil, configErrorf("demand %s-%s %s has no choice model %q", dc.Orig, dc.Dest, dc.Segment, du.ChoiceModel())
		}
		if len(s.pathsByMarket[odKey{dc.Orig, dc.Dest}]) == 0 {
			return nil, configErrorf("demand %s-%s has no paths serving the market", dc.Orig, dc.Dest)
		}
		s.Demands = append(s.Demands, du)
	}
	if len(s.Demands) == 0 {
		return nil, configErrorf("no demands defined")
	}

	for _, name := range sortedKeys(carriers) {
		s.Carriers = append(s.Carriers, carriers[name])
	}
	return s, nil
}

func validateControls(ctl *ControlsConfig) error {
	if ctl.NumTrials < 1 {
		return configErrorf("num_trials must be >= 1")
	}
	if ctl.NumSamples < 1 {
		return configErrorf("num_samples must be >= 1")
	}
	if ctl.BurnSamples >= ctl.NumSamples {
		return configErrorf("burn_samples %d must be below num_samples %d", ctl.BurnSamples, ctl.NumSamples)
	}
	if ctl.ZFactor <= 0 {
		return configErrorf("z_factor must be positive")
	}
	// The usual ordering is documented, not enforced; an inverted setup
	// is legitimate for experiments but worth flagging.
	if !(ctl.SysKFactor < ctl.MktKFactor && ctl.MktKFactor < ctl.PaxTypeKFactor) {
		logrus.Warnf("k-factors not in the usual order sys < mkt < pax_type (%v, %v, %v)",
			ctl.SysKFactor, ctl.MktKFactor, ctl.PaxTypeKFactor)
	}
	return nil
}

func validateDCPs(dcps []int) error {
	if len(dcps) < 2 {
		return configErrorf("dcps needs at least two checkpoints")
	}
	for i := 1; i < len(dcps); i++ {
		if dcps[i] >= dcps[i-1] {
			return configErrorf("dcps must be strictly decreasing, got %d after %d", dcps[i], dcps[i-1])
		}
	}
	if dcps[len(dcps)-1] != 0 {
		return configErrorf("dcps must end at 0 (departure), got %d", dcps[len(dcps)-1])
	}
	return nil
}

func classKnown(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PathsIn returns the paths serving an origin-destination market.
func (s *Scenario) PathsIn(orig, dest string) []*air.Path {
	return s.pathsByMarket[odKey{orig, dest}]
}

// FaresIn returns the fares filed in an origin-destination market.
func (s *Scenario) FaresIn(orig, dest string) []*air.Fare {
	return s.faresByMarket[odKey{orig, dest}]
}

// PrintInfo writes a short human-readable description of the validated
// network to stdout.
func (s *Scenario) PrintInfo() {
	fmt.Printf("Scenario: %s\n", s.Name)
	fmt.Printf("Classes:  %v\n", s.Classes)
	fmt.Printf("DCPs:     %v\n", s.DCPs)
	fmt.Printf("Controls: %d trials x %d samples (%d burn), seed=%d\n",
		s.Controls.NumTrials, s.Controls.NumSamples, s.Controls.BurnSamples, s.Controls.RandomSeed)
	for _, cxr := range s.Carriers {
		fmt.Printf("Carrier %s: rm_system=%s (%s control), %d legs, %d paths\n",
			cxr.Name, cxr.System.Name, cxr.System.AvailabilityControl, len(cxr.Legs), len(cxr.Paths))
	}
	fmt.Printf("Network:  %d legs, %d paths, %d fares, %d demand units\n",
		len(s.Legs), len(s.Paths), len(s.Fares), len(s.Demands))
	baseDemand := 0.0
	for _, du := range s.Demands {
		baseDemand += du.BaseDemand
	}
	fmt.Printf("Base demand: %.1f passengers per sample\n", baseDemand)
}
