package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maitreyeee/passengersim/sim/air"
)

func engineForTest(t *testing.T) (*BookingEngine, *Scenario) {
	t.Helper()
	sc := loadTestScenario(t)
	for _, leg := range sc.Legs {
		leg.PrepareSample(len(sc.DCPs))
	}
	for _, p := range sc.Paths {
		p.PrepareSample(len(sc.DCPs))
	}
	for _, f := range sc.Fares {
		f.PrepareSample(len(sc.DCPs))
	}
	for _, du := range sc.Demands {
		du.PrepareSample(len(sc.DCPs))
	}
	return NewBookingEngine(sc), sc
}

func TestSell_DecrementsAuthChainBelowPurchasedClass(t *testing.T) {
	e, sc := engineForTest(t)
	leg := sc.Carriers[0].Legs[0]
	path := sc.PathsIn("BOS", "SFO")[0]
	require.Equal(t, leg, path.Legs[0])

	// Set a nested auth profile and sell one B seat: B and everything
	// below loses a seat, Y keeps its authorization.
	auths := []int{100, 80, 50, 20}
	for i, b := range leg.Buckets {
		b.Auth = auths[i]
	}
	var fareB *air.Fare
	for _, f := range sc.FaresIn("BOS", "SFO") {
		if f.Carrier == leg.Carrier && f.BookingClass == "B" {
			fareB = f
		}
	}
	require.NotNil(t, fareB)

	du := sc.Demands[0]
	booked, err := e.sell(du, Option{Path: path, Fare: fareB})
	require.NoError(t, err)
	require.True(t, booked)

	want := []int{100, 79, 49, 19}
	for i, b := range leg.Buckets {
		if b.Auth != want[i] {
			t.Errorf("bucket %s auth = %d, want %d", b.Name, b.Auth, want[i])
		}
	}
	if leg.Sold != 1 || leg.Bucket("B").Sold != 1 {
		t.Errorf("sold counters wrong: leg=%d bucket=%d", leg.Sold, leg.Bucket("B").Sold)
	}
	if du.Sold != 1 || fareB.Sold != 1 {
		t.Errorf("demand/fare counters wrong: du=%d fare=%d", du.Sold, fareB.Sold)
	}
}

func TestSell_CapacityViolationSurfacesAsError(t *testing.T) {
	e, sc := engineForTest(t)
	leg := sc.Carriers[0].Legs[0]
	path := sc.PathsIn("BOS", "SFO")[0]
	fare := sc.FaresIn("BOS", "SFO")[0]
	du := sc.Demands[0]

	// Force an inconsistent state: full leg with an open bucket.
	leg.Sold = leg.Capacity
	leg.Buckets[0].Auth = 1

	_, err := e.sell(du, Option{Path: path, Fare: fare})
	var cv *CapacityViolationError
	if !errors.As(err, &cv) {
		t.Fatalf("err = %v, want CapacityViolationError", err)
	}
	if cv.FltNo != leg.FltNo {
		t.Errorf("violation on leg %d, want %d", cv.FltNo, leg.FltNo)
	}
}

func TestRunTimeframe_NeverOversells(t *testing.T) {
	e, sc := engineForTest(t)

	// Crush capacity so demand far exceeds seats.
	for _, leg := range sc.Legs {
		leg.Capacity = 5
		leg.PrepareSample(len(sc.DCPs))
	}

	gen := NewGenerator(42, 0)
	gen.StartSample(0)
	GenerateDemand(sc, gen)
	for tf := range sc.DCPs {
		if err := e.RunTimeframe(tf, gen); err != nil {
			t.Fatal(err)
		}
	}

	for _, leg := range sc.Legs {
		if leg.Sold > leg.Capacity {
			t.Errorf("leg %d sold %d over capacity %d", leg.FltNo, leg.Sold, leg.Capacity)
		}
	}
}

func TestRunTimeframe_AdvancePurchaseFiltersLateArrivals(t *testing.T) {
	e, sc := engineForTest(t)

	// Put everyone in the final timeframe (0 days prior) where the
	// 14-day advance-purchase Q fares must be unavailable.
	for _, du := range sc.Demands {
		du.ByTimeframe[len(sc.DCPs)-1] = 20
	}
	gen := NewGenerator(42, 0)
	gen.StartSample(0)
	if err := e.RunTimeframe(len(sc.DCPs)-1, gen); err != nil {
		t.Fatal(err)
	}
	for _, f := range sc.Fares {
		if f.AdvancePurchase > 0 && f.Sold > 0 {
			t.Errorf("advance-purchase fare %d sold %d seats at departure", f.ID, f.Sold)
		}
	}
}

func TestProcessArrival_FailedSaleCountsAsNoGo(t *testing.T) {
	e, sc := engineForTest(t)

	// Fill AL1 so the menu only offers AL2 products, then close every AL2
	// class while seats remain. AL2 runs capacity-only control, so the
	// closed classes still reach the menu and the sale itself refuses;
	// the arrival must land in a counter rather than vanish.
	al1 := sc.Carriers[0].Legs[0]
	al1.Sold = al1.Capacity
	al2 := sc.Carriers[1].Legs[0]
	for _, b := range al2.Buckets {
		b.Auth = 0
	}

	gen := NewGenerator(7, 0)
	gen.StartSample(0)
	du := sc.Demands[0] // business: wtp always clears the cheapest fare
	require.NoError(t, e.processArrival(du, 63, gen.Stream(StreamChoice)))

	if du.NoGo != 1 {
		t.Errorf("NoGo = %d, want 1", du.NoGo)
	}
	if du.Sold != 0 {
		t.Errorf("Sold = %d, want 0", du.Sold)
	}
	if al2.Sold != 0 {
		t.Errorf("leg sold = %d, want 0", al2.Sold)
	}
	// The refusal happened at the closed bucket, not at willingness to pay.
	if got := al2.Bucket("Q").Spilled; got != 1 {
		t.Errorf("Q spilled = %d, want 1", got)
	}
}

func TestRecordSpill_AttributesCheapestClosedClass(t *testing.T) {
	e, sc := engineForTest(t)
	leg := sc.Carriers[0].Legs[0]
	path := sc.PathsIn("BOS", "SFO")[0]

	leg.Bucket("M").Auth = 0
	leg.Bucket("Q").Auth = 0
	var fareM, fareQ *air.Fare
	for _, f := range sc.FaresIn("BOS", "SFO") {
		if f.Carrier != leg.Carrier {
			continue
		}
		switch f.BookingClass {
		case "M":
			fareM = f
		case "Q":
			fareQ = f
		}
	}
	closed := []Option{{Path: path, Fare: fareM}, {Path: path, Fare: fareQ}}

	// Purchase at 300: the cheapest closed class below that price (Q)
	// takes the spill.
	e.recordSpill(closed, true, 300)
	if got := leg.Bucket("Q").Spilled; got != 1 {
		t.Errorf("Q spilled = %d, want 1", got)
	}
	if got := leg.Bucket("M").Spilled; got != 0 {
		t.Errorf("M spilled = %d, want 0", got)
	}
}
