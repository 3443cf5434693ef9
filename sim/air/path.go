package air

import "fmt"

// PathClass tracks path-level booking-class state for carriers whose RM
// system runs path-scoped steps (ProBP). Displacement is the sum of bid
// prices on the path's other legs, written by the aggregation step.
type PathClass struct {
	Name string

	// DecisionFare is the representative fare for this class on this
	// path's market, set at initialization.
	DecisionFare float64

	Sold    int
	Revenue float64

	FcstMean     float64
	FcstStdev    float64
	Displacement float64

	SoldByDCP  []int
	ClosedInTF []bool
}

// Path is an ordered sequence of legs connecting an origin-destination
// pair. Single-carrier only: every leg belongs to the marketing carrier.
type Path struct {
	ID           int
	Orig         string
	Dest         string
	Legs         []*Leg
	QualityIndex float64

	Classes []*PathClass
}

// NewPath validates leg connectivity and builds path-class state for the
// given class names.
func NewPath(id int, legs []*Leg, quality float64, classes []string) (*Path, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("path %d has no legs", id)
	}
	for i := 1; i < len(legs); i++ {
		if legs[i-1].Dest != legs[i].Orig {
			return nil, fmt.Errorf("path %d is not connected: leg %d arrives %s, leg %d departs %s",
				id, legs[i-1].FltNo, legs[i-1].Dest, legs[i].FltNo, legs[i].Orig)
		}
		if legs[i].Carrier != legs[0].Carrier {
			return nil, fmt.Errorf("path %d mixes carriers %s and %s", id, legs[0].Carrier, legs[i].Carrier)
		}
	}
	p := &Path{
		ID:           id,
		Orig:         legs[0].Orig,
		Dest:         legs[len(legs)-1].Dest,
		Legs:         legs,
		QualityIndex: quality,
	}
	for _, c := range classes {
		p.Classes = append(p.Classes, &PathClass{Name: c})
	}
	return p, nil
}

// Carrier is the marketing carrier of the path (all legs share it).
func (p *Path) Carrier() string {
	return p.Legs[0].Carrier
}

// Distance is the sum of leg distances.
func (p *Path) Distance() float64 {
	var d float64
	for _, l := range p.Legs {
		d += l.Distance
	}
	return d
}

// Class returns the path-class state for the named class, or nil.
func (p *Path) Class(name string) *PathClass {
	for _, pc := range p.Classes {
		if pc.Name == name {
			return pc
		}
	}
	return nil
}

// Available reports whether the named class is open on every leg of the
// path. Under bid-price control the caller additionally compares the fare
// against the summed leg bid prices.
func (p *Path) Available(class string) bool {
	for _, l := range p.Legs {
		b := l.Bucket(class)
		if b == nil || !b.Open() {
			return false
		}
	}
	return true
}

// TotalBidPrice sums the current bid prices across the path's legs.
func (p *Path) TotalBidPrice() float64 {
	var bp float64
	for _, l := range p.Legs {
		bp += l.BidPrice
	}
	return bp
}

// PrepareSample resets per-sample path-class counters.
func (p *Path) PrepareSample(numDCPs int) {
	for _, pc := range p.Classes {
		pc.Sold = 0
		pc.Revenue = 0
		pc.FcstMean = 0
		pc.FcstStdev = 0
		pc.Displacement = 0
		pc.SoldByDCP = make([]int, numDCPs)
		pc.ClosedInTF = make([]bool, numDCPs)
	}
}

// CaptureDCP snapshots cumulative path-class sold counts at checkpoint
// dcpIndex.
func (p *Path) CaptureDCP(dcpIndex int) {
	for _, pc := range p.Classes {
		pc.SoldByDCP[dcpIndex] = pc.Sold
		if !p.Available(pc.Name) {
			pc.ClosedInTF[dcpIndex] = true
		}
	}
}
