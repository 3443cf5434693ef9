package air

// DemandUnit is one (origin-destination, passenger-segment) market. The
// definition fields come from configuration; ScenarioDemand and the
// counters below it are regenerated every sample.
type DemandUnit struct {
	Orig          string
	Dest          string
	Segment       string
	BaseDemand    float64
	ReferenceFare float64
	Distance      float64

	// ChoiceModelName selects the choice model applied to passengers in
	// this unit, falling back to the segment name when empty.
	ChoiceModelName string

	// CurveName selects the booking curve that spreads this unit's demand
	// over timeframes.
	CurveName string

	Business bool

	Curve *BookingCurve

	// ScenarioDemand is the realized total demand for the current sample.
	ScenarioDemand int

	// ByTimeframe is the allocation of ScenarioDemand across timeframes;
	// its entries always sum to ScenarioDemand.
	ByTimeframe []int

	Sold    int
	NoGo    int
	Revenue float64
}

// ChoiceModel returns the effective choice model name for this unit.
func (d *DemandUnit) ChoiceModel() string {
	if d.ChoiceModelName != "" {
		return d.ChoiceModelName
	}
	return d.Segment
}

// PrepareSample clears the realized-demand state.
func (d *DemandUnit) PrepareSample(numDCPs int) {
	d.ScenarioDemand = 0
	d.ByTimeframe = make([]int, numDCPs)
	d.Sold = 0
	d.NoGo = 0
	d.Revenue = 0
}
