package air

// Fare is a priced product: one booking class of one carrier in one
// origin-destination market. Fare IDs are assigned sequentially at
// initialization and are stable for a given configuration.
type Fare struct {
	ID              int
	Carrier         string
	Orig            string
	Dest            string
	BookingClass    string
	Price           float64
	AdvancePurchase int // minimum days prior to departure; 0 = none
	Restrictions    []string
	Category        string

	Sold         int
	SoldBusiness int
	Revenue      float64

	SoldByDCP         []int
	SoldBusinessByDCP []int
}

// HasRestriction reports whether the fare carries the given restriction
// code (R1..R4).
func (f *Fare) HasRestriction(code string) bool {
	for _, r := range f.Restrictions {
		if r == code {
			return true
		}
	}
	return false
}

// PurchasableAt reports whether the fare's advance-purchase rule permits
// buying at the given days prior to departure.
func (f *Fare) PurchasableAt(daysPrior float64) bool {
	return f.AdvancePurchase == 0 || daysPrior >= float64(f.AdvancePurchase)
}

// PrepareSample resets the per-sample sales counters.
func (f *Fare) PrepareSample(numDCPs int) {
	f.Sold = 0
	f.SoldBusiness = 0
	f.Revenue = 0
	f.SoldByDCP = make([]int, numDCPs)
	f.SoldBusinessByDCP = make([]int, numDCPs)
}

// CaptureDCP snapshots cumulative sold at checkpoint dcpIndex.
func (f *Fare) CaptureDCP(dcpIndex int) {
	f.SoldByDCP[dcpIndex] = f.Sold
	f.SoldBusinessByDCP[dcpIndex] = f.SoldBusiness
}
