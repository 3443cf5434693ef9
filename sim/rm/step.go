package rm

import (
	"fmt"

	"github.com/maitreyeee/passengersim/sim/air"
)

// Availability controls an RM system can use.
const (
	ControlLeg  = "leg"  // nested leg booking-class limits
	ControlBP   = "bp"   // bid-price acceptance on top of class limits
	ControlNone = "none" // capacity only
)

// Kinds a step can be scoped to.
const (
	KindLeg  = "leg"
	KindPath = "path"
)

// Context is what a step sees when it runs: the carrier's slice of the
// network, the DCP clock, and the carrier's RM memory. Steps communicate
// through State and through the forecast fields on buckets and path
// classes.
type Context struct {
	Carrier string
	Legs    []*air.Leg
	Paths   []*air.Path

	// DCPs is the full checkpoint list (strictly decreasing days prior,
	// terminal 0); DCPIndex is the checkpoint just reached.
	DCPs     []int
	DCPIndex int

	// Departed is true at the terminal checkpoint, after the sample's
	// observations have been recorded into State.
	Departed bool

	// Control is the availability control of the running system, set by
	// System.Run. Under bid-price control the EMSR step leaves leg bid
	// prices to ProBP.
	Control string

	State *CarrierState
}

// NumTF is the number of timeframes (one per checkpoint).
func (c *Context) NumTF() int {
	return len(c.DCPs)
}

// Step is one stage of an RM system's pipeline. Run executes at every
// checkpoint; runtime numeric trouble must be clamped or guarded, never
// returned as an error (errors abort the run).
type Step interface {
	StepType() string
	Kind() string
	Run(ctx *Context) error
}

// StepConfig is the tagged YAML form of a step. Exactly the fields that
// apply to the step_type are read; unknown combinations are rejected by
// ParseStep.
type StepConfig struct {
	StepType  string  `yaml:"step_type"`
	Name      string  `yaml:"name,omitempty"`
	Algorithm string  `yaml:"algorithm,omitempty"`
	Kind      string  `yaml:"kind,omitempty"`
	Alpha     float64 `yaml:"alpha,omitempty"`
	PriorMean float64 `yaml:"prior_mean,omitempty"`
}

// ParseStep maps a StepConfig onto its concrete step variant.
func ParseStep(cfg StepConfig) (Step, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = KindLeg
	}
	if kind != KindLeg && kind != KindPath {
		return nil, fmt.Errorf("step %s: unknown kind %q", cfg.StepType, cfg.Kind)
	}
	switch cfg.StepType {
	case "untruncation":
		switch cfg.Algorithm {
		case "none", "em", "naive1", "naive2":
		default:
			return nil, fmt.Errorf("untruncation step: unknown algorithm %q", cfg.Algorithm)
		}
		return &UntruncationStep{Algorithm: cfg.Algorithm, kind: kind}, nil
	case "forecast":
		alpha := cfg.Alpha
		if alpha == 0 {
			alpha = 0.15
		}
		switch cfg.Algorithm {
		case "exp_smoothing":
			if alpha < 0 || alpha > 1 {
				return nil, fmt.Errorf("forecast step: alpha %v out of [0,1]", cfg.Alpha)
			}
		case "additive_pickup":
			// alpha ignored
		default:
			return nil, fmt.Errorf("forecast step: unknown algorithm %q", cfg.Algorithm)
		}
		return &ForecastStep{Algorithm: cfg.Algorithm, Alpha: alpha, PriorMean: cfg.PriorMean, kind: kind}, nil
	case "emsr":
		switch cfg.Algorithm {
		case "emsra", "emsrb", "fcfs":
		default:
			return nil, fmt.Errorf("emsr step: unknown algorithm %q", cfg.Algorithm)
		}
		if kind != KindLeg {
			return nil, fmt.Errorf("emsr step: kind %q not supported", kind)
		}
		return &EMSRStep{Algorithm: cfg.Algorithm}, nil
	case "probp":
		if kind != KindPath {
			return nil, fmt.Errorf("probp step: kind must be path")
		}
		return &ProBPStep{}, nil
	case "aggregation":
		return &AggregationStep{}, nil
	case "fcfs":
		return &FCFSStep{}, nil
	default:
		return nil, fmt.Errorf("unknown step_type %q", cfg.StepType)
	}
}

// System is a named, ordered step list shared by reference across the
// carriers that use it. Systems are immutable after Validate; all mutable
// state lives in each carrier's CarrierState.
type System struct {
	Name                string
	Steps               []Step
	AvailabilityControl string
}

// NewSystem parses and validates a system definition.
func NewSystem(name string, control string, cfgs []StepConfig) (*System, error) {
	if control == "" {
		control = ControlLeg
	}
	switch control {
	case ControlLeg, ControlBP, ControlNone:
	default:
		return nil, fmt.Errorf("rm system %q: unknown availability_control %q", name, control)
	}
	s := &System{Name: name, AvailabilityControl: control}
	for i, cfg := range cfgs {
		step, err := ParseStep(cfg)
		if err != nil {
			return nil, fmt.Errorf("rm system %q step %d: %w", name, i, err)
		}
		s.Steps = append(s.Steps, step)
	}
	if err := s.validateOrdering(); err != nil {
		return nil, fmt.Errorf("rm system %q: %w", name, err)
	}
	return s, nil
}

// validateOrdering rejects step lists whose data dependencies cannot be
// satisfied: a forecast needs an earlier untruncation of the same kind, an
// optimizer needs forecasts, ProBP needs bid-price control and a following
// aggregation.
func (s *System) validateOrdering() error {
	seenUntrunc := map[string]bool{}
	seenForecast := map[string]bool{}
	seenProBP := false
	seenAggregation := false
	for i, step := range s.Steps {
		switch st := step.(type) {
		case *UntruncationStep:
			seenUntrunc[st.Kind()] = true
		case *ForecastStep:
			if !seenUntrunc[st.Kind()] {
				return fmt.Errorf("step %d: forecast (kind %s) requires an earlier untruncation step of the same kind", i, st.Kind())
			}
			seenForecast[st.Kind()] = true
		case *EMSRStep:
			if !seenForecast[KindLeg] && !seenAggregation {
				return fmt.Errorf("step %d: emsr requires an earlier leg forecast or aggregation step", i)
			}
		case *ProBPStep:
			if s.AvailabilityControl != ControlBP {
				return fmt.Errorf("step %d: probp requires availability_control: bp", i)
			}
			if !seenForecast[KindPath] {
				return fmt.Errorf("step %d: probp requires an earlier path forecast step", i)
			}
			seenProBP = true
		case *AggregationStep:
			if !seenProBP {
				return fmt.Errorf("step %d: aggregation requires an earlier probp step", i)
			}
			seenAggregation = true
		}
	}
	if seenProBP && !seenAggregation {
		return fmt.Errorf("probp must be followed by an aggregation step")
	}
	return nil
}

// Run executes the step list in configured order.
func (s *System) Run(ctx *Context) error {
	ctx.Control = s.AvailabilityControl
	for _, step := range s.Steps {
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("rm system %s, step %s: %w", s.Name, step.StepType(), err)
		}
	}
	return nil
}
