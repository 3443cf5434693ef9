package rm

import (
	"math"
	"testing"

	"github.com/maitreyeee/passengersim/sim/air"
)

func twoClassLeg(capacity int) *air.Leg {
	leg := air.NewLeg(101, "AL1", "BOS", "SFO", capacity, []string{"Y", "Q"})
	leg.PrepareSample(3)
	leg.Buckets[0].DecisionFare = 400
	leg.Buckets[1].DecisionFare = 100
	return leg
}

// TestEMSRb_TwoClassProtection checks the closed-form two-class case:
// with Y demand to come N(5, 2) and fares 400 over 100, the protection
// for Y is the 0.75 quantile of N(5, 2), about 6.349, so Q is authorized
// capacity minus round(6.349) seats.
func TestEMSRb_TwoClassProtection(t *testing.T) {
	leg := twoClassLeg(100)
	leg.Buckets[0].FcstMean = 5
	leg.Buckets[0].FcstStdev = 2
	leg.Buckets[1].FcstMean = 20
	leg.Buckets[1].FcstStdev = 4

	step := &EMSRStep{Algorithm: "emsrb"}
	ctx := &Context{Legs: []*air.Leg{leg}, DCPs: []int{21, 7, 0}, State: NewCarrierState()}
	if err := step.Run(ctx); err != nil {
		t.Fatal(err)
	}

	if leg.Buckets[0].Auth != 100 {
		t.Errorf("top class auth = %d, want full remaining capacity", leg.Buckets[0].Auth)
	}
	// Expected protection 5 + 2*z_{0.75} = 6.34898, rounds to 6.
	if got, want := leg.Buckets[1].Auth, 94; got != want {
		t.Errorf("Q auth = %d, want %d (protection ~6.349 rounds to 6)", got, want)
	}
}

// TestEMSR_BidPricePositiveWhenCapacityTight verifies the marginal seat
// value is positive when expected demand approaches remaining capacity.
func TestEMSR_BidPricePositiveWhenCapacityTight(t *testing.T) {
	leg := twoClassLeg(30)
	leg.Buckets[0].FcstMean = 5
	leg.Buckets[0].FcstStdev = 2
	leg.Buckets[1].FcstMean = 20
	leg.Buckets[1].FcstStdev = 6

	step := &EMSRStep{Algorithm: "emsrb"}
	ctx := &Context{Legs: []*air.Leg{leg}, DCPs: []int{21, 7, 0}, State: NewCarrierState()}
	if err := step.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if leg.BidPrice <= 0 {
		t.Errorf("bid price = %v, want > 0 with demand near capacity", leg.BidPrice)
	}
}

// TestEMSRa_SingleHigherClassMatchesEMSRb verifies that with only one
// class above the cheapest, the a and b variants protect identically.
func TestEMSRa_SingleHigherClassMatchesEMSRb(t *testing.T) {
	legA := twoClassLeg(100)
	legB := twoClassLeg(100)
	for _, leg := range []*air.Leg{legA, legB} {
		leg.Buckets[0].FcstMean = 5
		leg.Buckets[0].FcstStdev = 2
	}

	ctxA := &Context{Legs: []*air.Leg{legA}, DCPs: []int{21, 7, 0}, State: NewCarrierState()}
	ctxB := &Context{Legs: []*air.Leg{legB}, DCPs: []int{21, 7, 0}, State: NewCarrierState()}
	if err := (&EMSRStep{Algorithm: "emsra"}).Run(ctxA); err != nil {
		t.Fatal(err)
	}
	if err := (&EMSRStep{Algorithm: "emsrb"}).Run(ctxB); err != nil {
		t.Fatal(err)
	}
	if legA.Buckets[1].Auth != legB.Buckets[1].Auth {
		t.Errorf("emsra auth %d != emsrb auth %d", legA.Buckets[1].Auth, legB.Buckets[1].Auth)
	}
}

// TestEMSR_AuthorizationsNest verifies authorizations are non-increasing
// from the top class down, whatever the forecast shape.
func TestEMSR_AuthorizationsNest(t *testing.T) {
	leg := air.NewLeg(101, "AL1", "BOS", "SFO", 120, []string{"Y", "B", "M", "Q"})
	leg.PrepareSample(3)
	fares := []float64{450, 300, 180, 110}
	means := []float64{4, 9, 25, 60}
	stdevs := []float64{2, 3, 6, 10}
	for i, b := range leg.Buckets {
		b.DecisionFare = fares[i]
		b.FcstMean = means[i]
		b.FcstStdev = stdevs[i]
	}

	for _, alg := range []string{"emsra", "emsrb"} {
		step := &EMSRStep{Algorithm: alg}
		ctx := &Context{Legs: []*air.Leg{leg}, DCPs: []int{21, 7, 0}, State: NewCarrierState()}
		if err := step.Run(ctx); err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(leg.Buckets); i++ {
			if leg.Buckets[i].Auth > leg.Buckets[i-1].Auth {
				t.Errorf("%s: auth not nested at %s: %d > %d",
					alg, leg.Buckets[i].Name, leg.Buckets[i].Auth, leg.Buckets[i-1].Auth)
			}
		}
		if leg.Buckets[0].Auth != leg.Remaining() {
			t.Errorf("%s: top class auth %d != remaining %d", alg, leg.Buckets[0].Auth, leg.Remaining())
		}
	}
}

// TestEMSR_ZeroForecastOpensEverything verifies that with no expected
// demand there is nothing to protect.
func TestEMSR_ZeroForecastOpensEverything(t *testing.T) {
	leg := twoClassLeg(100)
	step := &EMSRStep{Algorithm: "emsrb"}
	ctx := &Context{Legs: []*air.Leg{leg}, DCPs: []int{21, 7, 0}, State: NewCarrierState()}
	if err := step.Run(ctx); err != nil {
		t.Fatal(err)
	}
	for _, b := range leg.Buckets {
		if b.Auth != 100 {
			t.Errorf("bucket %s auth = %d, want 100", b.Name, b.Auth)
		}
	}
	if leg.BidPrice != 0 {
		t.Errorf("bid price = %v, want 0 with no demand", leg.BidPrice)
	}
}

func TestFCFS_OpensAllToRemaining(t *testing.T) {
	leg := twoClassLeg(100)
	leg.Sold = 30
	leg.Buckets[1].Auth = 0

	ctx := &Context{Legs: []*air.Leg{leg}, DCPs: []int{21, 7, 0}, State: NewCarrierState()}
	if err := (&FCFSStep{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	for _, b := range leg.Buckets {
		if b.Auth != 70 {
			t.Errorf("bucket %s auth = %d, want 70", b.Name, b.Auth)
		}
	}
}

func TestClassProtection_QuantileValue(t *testing.T) {
	b := &air.Bucket{DecisionFare: 400, FcstMean: 5, FcstStdev: 2}
	got := classProtection(b, 100)
	want := 6.34898
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("classProtection = %v, want %v within 1e-3", got, want)
	}
}
