package rm

import (
	"testing"

	"github.com/maitreyeee/passengersim/sim/air"
)

func probpNetwork(t *testing.T) (*Context, *air.Leg, *air.Leg) {
	t.Helper()
	ab := air.NewLeg(1, "AL1", "AAA", "BBB", 10, []string{"Y", "Q"})
	bc := air.NewLeg(2, "AL1", "BBB", "CCC", 10, []string{"Y", "Q"})
	ab.PrepareSample(3)
	bc.PrepareSample(3)

	local, err := air.NewPath(1, []*air.Leg{ab}, 0, []string{"Y", "Q"})
	if err != nil {
		t.Fatal(err)
	}
	connect, err := air.NewPath(2, []*air.Leg{ab, bc}, 0, []string{"Y", "Q"})
	if err != nil {
		t.Fatal(err)
	}

	for _, pc := range local.Classes {
		pc.DecisionFare = 300
		pc.FcstMean = 8
		pc.FcstStdev = 3
	}
	for _, pc := range connect.Classes {
		pc.DecisionFare = 500
		pc.FcstMean = 6
		pc.FcstStdev = 2
	}

	ctx := &Context{
		Carrier: "AL1",
		Legs:    []*air.Leg{ab, bc},
		Paths:   []*air.Path{local, connect},
		DCPs:    []int{21, 7, 0},
		Control: ControlBP,
		State:   NewCarrierState(),
	}
	return ctx, ab, bc
}

func TestProBP_BidPricesPositiveUnderTightCapacity(t *testing.T) {
	ctx, ab, bc := probpNetwork(t)
	if err := (&ProBPStep{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	// Leg AB carries both the local and the connecting path and has 14
	// expected passengers for 10 seats; its seat must be worth something.
	if ab.BidPrice <= 0 {
		t.Errorf("AB bid price = %v, want > 0 with demand above capacity", ab.BidPrice)
	}
	// The shared leg is more contested than the spoke.
	if bc.BidPrice >= ab.BidPrice {
		t.Errorf("BC bid price %v >= AB bid price %v, want the shared leg dearer", bc.BidPrice, ab.BidPrice)
	}
}

func TestProBP_DisplacementIsSumOfLegBidPrices(t *testing.T) {
	ctx, ab, bc := probpNetwork(t)
	if err := (&ProBPStep{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	connect := ctx.Paths[1]
	want := ab.BidPrice + bc.BidPrice
	for _, pc := range connect.Classes {
		if pc.Displacement != want {
			t.Errorf("class %s displacement = %v, want %v", pc.Name, pc.Displacement, want)
		}
	}
}

func TestProBP_NoForecastMeansZeroBidPrice(t *testing.T) {
	ctx, ab, _ := probpNetwork(t)
	for _, p := range ctx.Paths {
		for _, pc := range p.Classes {
			pc.FcstMean = 0
		}
	}
	if err := (&ProBPStep{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if ab.BidPrice != 0 {
		t.Errorf("bid price = %v, want 0 with no demand", ab.BidPrice)
	}
}

func TestAggregation_DropsClassesBelowDisplacement(t *testing.T) {
	ctx, ab, _ := probpNetwork(t)
	if err := (&ProBPStep{}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	// Make the connecting Q fare uneconomic: it cannot cover the
	// displacement on the other leg.
	connect := ctx.Paths[1]
	q := connect.Class("Q")
	q.DecisionFare = 1

	if err := (&AggregationStep{}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	local := ctx.Paths[0]
	wantQ := local.Class("Q").FcstMean // connecting Q excluded
	if got := ab.Bucket("Q").FcstMean; got != wantQ {
		t.Errorf("Q bucket forecast = %v, want local-only %v", got, wantQ)
	}
	wantY := local.Class("Y").FcstMean + connect.Class("Y").FcstMean
	if got := ab.Bucket("Y").FcstMean; got != wantY {
		t.Errorf("Y bucket forecast = %v, want %v", got, wantY)
	}
}
