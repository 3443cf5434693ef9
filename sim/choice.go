package sim

import (
	"math"
	"math/rand"

	"github.com/maitreyeee/passengersim/sim/air"
)

// Option is one purchasable (path, fare) product offered to an arriving
// passenger after availability filtering.
type Option struct {
	Path *air.Path
	Fare *air.Fare
}

// ChoiceModel scores fare products for one passenger segment. The model
// is evaluated once per simulated arrival: a willingness-to-pay level is
// drawn for the passenger, every open option gets a generalized cost
// (price plus restriction and quality disutilities, less preference
// bonuses), and the cheapest acceptable option wins. No acceptable
// option means no purchase.
type ChoiceModel struct {
	Name string
	Kind string

	// Emult positions the willingness-to-pay distribution: half of the
	// passengers are willing to pay Emult times the segment's base fare
	// level.
	Emult        float64
	BasefareMult float64

	// PathQuality and PreferredAirline are (constant, slope) bonus
	// coefficients in currency units.
	PathQuality      [2]float64
	PreferredAirline [2]float64

	// Tolerance stretches the acceptance bound: an option is acceptable
	// when its generalized cost is within Tolerance times the drawn
	// willingness to pay.
	Tolerance float64

	// R holds the four restriction disutility weights, applied as
	// fractions of the option price for restriction codes R1..R4.
	R [4]float64
}

// NewChoiceModel validates a choice-model configuration.
func NewChoiceModel(name string, cfg ChoiceModelConfig) (*ChoiceModel, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = "pods"
	}
	if kind != "pods" {
		return nil, configErrorf("choice model %q: unknown kind %q", name, cfg.Kind)
	}
	cm := &ChoiceModel{
		Name:         name,
		Kind:         kind,
		Emult:        cfg.Emult,
		BasefareMult: cfg.BasefareMult,
		Tolerance:    cfg.Tolerance,
		R:            [4]float64{cfg.R1, cfg.R2, cfg.R3, cfg.R4},
	}
	if cm.Emult == 0 {
		cm.Emult = 1.5
	}
	if cm.Emult < 1 {
		return nil, configErrorf("choice model %q: emult %v must be >= 1", name, cfg.Emult)
	}
	if cm.BasefareMult == 0 {
		cm.BasefareMult = 1.0
	}
	if cm.Tolerance == 0 {
		cm.Tolerance = 1.0
	}
	if err := pairInto(&cm.PathQuality, cfg.PathQuality); err != nil {
		return nil, configErrorf("choice model %q: path_quality %v", name, err)
	}
	if err := pairInto(&cm.PreferredAirline, cfg.PreferredAirline); err != nil {
		return nil, configErrorf("choice model %q: preferred_airline %v", name, err)
	}
	return cm, nil
}

func pairInto(dst *[2]float64, src []float64) error {
	switch len(src) {
	case 0:
	case 2:
		dst[0], dst[1] = src[0], src[1]
	default:
		return errPairLength
	}
	return nil
}

var errPairLength = configErrorf("wants exactly two coefficients")

// Choose evaluates one arrival against the open options. Returns the
// index of the chosen option, or -1 for no purchase.
func (cm *ChoiceModel) Choose(du *air.DemandUnit, options []Option, rng *rand.Rand) int {
	if len(options) == 0 {
		return -1
	}
	wtp := cm.drawWTP(du.ReferenceFare, rng)
	preferred := cm.drawPreferred(options, rng)

	best := -1
	bestCost := math.Inf(1)
	for i, opt := range options {
		cost := cm.generalizedCost(du, opt, preferred)
		if cost > wtp*cm.Tolerance {
			continue
		}
		if cost < bestCost || (cost == bestCost && best >= 0 && opt.Fare.Price < options[best].Fare.Price) {
			best = i
			bestCost = cost
		}
	}
	return best
}

// drawWTP samples the passenger's willingness to pay. The multiplier M
// over the base fare level satisfies P(M > emult) = 1/2, exponentially
// decaying beyond 1.
func (cm *ChoiceModel) drawWTP(referenceFare float64, rng *rand.Rand) float64 {
	base := referenceFare * cm.BasefareMult
	if cm.Emult == 1 {
		return base
	}
	m := 1 + (cm.Emult-1)*rng.ExpFloat64()/math.Ln2
	return base * m
}

// drawPreferred picks the passenger's preferred carrier uniformly among
// the carriers present in the option set. Returns "" when the preference
// coefficients are unset.
func (cm *ChoiceModel) drawPreferred(options []Option, rng *rand.Rand) string {
	if cm.PreferredAirline == ([2]float64{}) {
		return ""
	}
	var carriers []string
	seen := map[string]bool{}
	for _, opt := range options {
		c := opt.Fare.Carrier
		if !seen[c] {
			seen[c] = true
			carriers = append(carriers, c)
		}
	}
	return carriers[rng.Intn(len(carriers))]
}

// generalizedCost is the option price plus restriction disutilities,
// less path-quality and airline-preference bonuses. All terms are in
// currency units.
func (cm *ChoiceModel) generalizedCost(du *air.DemandUnit, opt Option, preferred string) float64 {
	cost := opt.Fare.Price
	for k, w := range cm.R {
		if w == 0 {
			continue
		}
		if opt.Fare.HasRestriction(restrictionCode(k)) {
			cost += opt.Fare.Price * w
		}
	}
	cost -= cm.PathQuality[0] + cm.PathQuality[1]*opt.Path.QualityIndex
	if preferred != "" && opt.Fare.Carrier == preferred {
		cost -= cm.PreferredAirline[0] + cm.PreferredAirline[1]*du.ReferenceFare
	}
	return cost
}

func restrictionCode(k int) string {
	return [4]string{"R1", "R2", "R3", "R4"}[k]
}
