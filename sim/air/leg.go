package air

import "fmt"

// Bucket is a booking-class capacity control on a single leg. Buckets are
// ordered highest class first; Auth is the number of seats still sellable
// at this class or lower, so a well-formed leg has Auth non-increasing from
// the top bucket down.
type Bucket struct {
	Name string

	// DecisionFare is the representative fare the optimizer uses for this
	// class on this leg, set at initialization from the fare inputs.
	DecisionFare float64

	Auth    int
	Sold    int
	Revenue float64

	// Spilled counts arrivals this sample that selected this class but
	// found it closed. Feeds untruncation.
	Spilled int

	// Forecast state written by the RM pipeline for the current DCP:
	// expected demand still to come for this class, and its spread.
	FcstMean  float64
	FcstStdev float64

	// Per-checkpoint captures of the cumulative counters, indexed by DCP
	// position. Sized by PrepareSample.
	SoldByDCP    []int
	SpilledByDCP []int

	// ClosedInTF[t] records whether the bucket was closed at any point
	// during timeframe t. Untruncation treats such observations as
	// censored.
	ClosedInTF []bool
}

// Open reports whether the bucket can currently accept a booking.
func (b *Bucket) Open() bool {
	return b.Auth > 0
}

// Leg is one scheduled flight segment. Identity fields are immutable once
// the simulation starts; counters are per-sample.
type Leg struct {
	FltNo    int
	Carrier  string
	Orig     string
	Dest     string
	DepTime  int // minutes after local midnight
	ArrTime  int
	Capacity int
	Distance float64

	Buckets []*Bucket

	// BidPrice is the current marginal seat value under bid-price
	// availability control, written by the RM pipeline.
	BidPrice float64

	Sold    int
	Revenue float64

	SoldByDCP []int
}

// NewLeg builds a leg with one bucket per class name, all fully open.
func NewLeg(fltNo int, carrier, orig, dest string, capacity int, classes []string) *Leg {
	l := &Leg{
		FltNo:    fltNo,
		Carrier:  carrier,
		Orig:     orig,
		Dest:     dest,
		Capacity: capacity,
	}
	for _, c := range classes {
		l.Buckets = append(l.Buckets, &Bucket{Name: c, Auth: capacity})
	}
	return l
}

// Bucket returns the bucket for the named class, or nil.
func (l *Leg) Bucket(class string) *Bucket {
	for _, b := range l.Buckets {
		if b.Name == class {
			return b
		}
	}
	return nil
}

// BucketIndex returns the rank of the named class, highest class = 0.
// Returns -1 when the class is not sold on this leg.
func (l *Leg) BucketIndex(class string) int {
	for i, b := range l.Buckets {
		if b.Name == class {
			return i
		}
	}
	return -1
}

// Remaining is the unsold capacity on the leg.
func (l *Leg) Remaining() int {
	return l.Capacity - l.Sold
}

// PrepareSample resets the per-sample counters and opens every bucket to
// the full capacity, sizing the per-DCP capture slices for numDCPs
// checkpoints and numDCPs timeframes.
func (l *Leg) PrepareSample(numDCPs int) {
	l.Sold = 0
	l.Revenue = 0
	l.BidPrice = 0
	l.SoldByDCP = make([]int, numDCPs)
	for _, b := range l.Buckets {
		b.Auth = l.Capacity
		b.Sold = 0
		b.Revenue = 0
		b.Spilled = 0
		b.FcstMean = 0
		b.FcstStdev = 0
		b.SoldByDCP = make([]int, numDCPs)
		b.SpilledByDCP = make([]int, numDCPs)
		b.ClosedInTF = make([]bool, numDCPs)
	}
}

// CaptureDCP snapshots cumulative sold counts at checkpoint dcpIndex and
// records which buckets spent the just-ended timeframe closed.
func (l *Leg) CaptureDCP(dcpIndex int) {
	l.SoldByDCP[dcpIndex] = l.Sold
	for _, b := range l.Buckets {
		b.SoldByDCP[dcpIndex] = b.Sold
		b.SpilledByDCP[dcpIndex] = b.Spilled
		if !b.Open() {
			b.ClosedInTF[dcpIndex] = true
		}
	}
}

func (l *Leg) String() string {
	return fmt.Sprintf("%s %d %s-%s cap=%d sold=%d", l.Carrier, l.FltNo, l.Orig, l.Dest, l.Capacity, l.Sold)
}
