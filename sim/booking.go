package sim

import (
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/maitreyeee/passengersim/sim/air"
	"github.com/maitreyeee/passengersim/sim/rm"
)

// BookingEngine turns allocated timeframe demand into sales. For each
// arrival it builds the open (path, fare) menu under the owning carrier's
// availability control, asks the demand unit's choice model to decide,
// and applies the sale to every leg of the chosen path. It guarantees
// sold <= capacity on every leg; a breach is returned as a
// CapacityViolationError and aborts the run.
type BookingEngine struct {
	sc       *Scenario
	carriers map[string]*Carrier
	prorate  bool
}

// NewBookingEngine builds an engine over the scenario's network. The
// revenue proration strategy is fixed here, once, from configuration.
func NewBookingEngine(sc *Scenario) *BookingEngine {
	e := &BookingEngine{
		sc:       sc,
		carriers: make(map[string]*Carrier, len(sc.Carriers)),
		prorate:  *sc.Controls.ProrateRevenue,
	}
	for _, cxr := range sc.Carriers {
		e.carriers[cxr.Name] = cxr
	}
	return e
}

// arrival is one passenger due within the current timeframe, placed at a
// fractional position within it for interleaving across demand units.
type arrival struct {
	du  *air.DemandUnit
	pos float64
}

// RunTimeframe processes every arrival falling in timeframe tf (the
// interval ending at checkpoint tf). Arrivals from different demand
// units are interleaved by drawn position, so competing markets book
// against shared legs in a realistic order.
func (e *BookingEngine) RunTimeframe(tf int, gen *Generator) error {
	rng := gen.Stream(StreamTimeframe)
	choiceRng := gen.Stream(StreamChoice)

	var arrivals []arrival
	for _, du := range e.sc.Demands {
		for i := 0; i < du.ByTimeframe[tf]; i++ {
			arrivals = append(arrivals, arrival{du, rng.Float64()})
		}
	}
	sort.SliceStable(arrivals, func(i, j int) bool { return arrivals[i].pos < arrivals[j].pos })

	daysPrior := float64(e.sc.DCPs[tf])
	for _, a := range arrivals {
		if err := e.processArrival(a.du, daysPrior, choiceRng); err != nil {
			return err
		}
	}
	return nil
}

// processArrival runs one passenger through menu construction, choice,
// and sale.
func (e *BookingEngine) processArrival(du *air.DemandUnit, daysPrior float64, rng *rand.Rand) error {
	var open []Option
	var closed []Option

	for _, p := range e.sc.PathsIn(du.Orig, du.Dest) {
		control := e.carriers[p.Carrier()].System.AvailabilityControl
		for _, fare := range e.sc.FaresIn(du.Orig, du.Dest) {
			if fare.Carrier != p.Carrier() {
				continue
			}
			if !fare.PurchasableAt(daysPrior) {
				continue
			}
			if e.available(p, fare, control) {
				open = append(open, Option{Path: p, Fare: fare})
			} else if e.hasSeats(p) {
				// Seats exist but controls closed the class: a candidate
				// spill, attributed below.
				closed = append(closed, Option{Path: p, Fare: fare})
			}
		}
	}

	cm := e.sc.ChoiceModels[du.ChoiceModel()]
	choice := cm.Choose(du, open, rng)

	var soldPrice float64
	purchased := false
	if choice < 0 {
		du.NoGo++
	} else {
		booked, err := e.sell(du, open[choice])
		if err != nil {
			return err
		}
		if booked {
			purchased = true
			soldPrice = open[choice].Fare.Price
		} else {
			// The menu offered a product the sale could not complete.
			// The passenger still has to land in a counter.
			du.NoGo++
		}
	}

	// Spill: the passenger wanted (or might have wanted) a cheaper closed
	// class. Attribute one spilled arrival to the cheapest closed option
	// priced below what was actually paid.
	e.recordSpill(closed, purchased, soldPrice)
	return nil
}

// available applies the carrier's availability control to one product.
func (e *BookingEngine) available(p *air.Path, fare *air.Fare, control string) bool {
	if !e.hasSeats(p) {
		return false
	}
	switch control {
	case rm.ControlNone:
		return true
	case rm.ControlBP:
		return p.Available(fare.BookingClass) && fare.Price >= p.TotalBidPrice()
	default: // leg
		return p.Available(fare.BookingClass)
	}
}

func (e *BookingEngine) hasSeats(p *air.Path) bool {
	for _, leg := range p.Legs {
		if leg.Remaining() <= 0 {
			return false
		}
	}
	return true
}

// sell books one seat on every leg of the option's path, decrementing
// the authorization chain at and below the purchased class, and
// attributes revenue per the proration strategy. Returns false when the
// sale could not complete; the caller counts the arrival as a no-go.
func (e *BookingEngine) sell(du *air.DemandUnit, opt Option) (bool, error) {
	price := opt.Fare.Price
	p := opt.Path

	// Every leg must accept the class before any counter moves, so a
	// refused leg cannot leave a half-applied booking.
	idxs := make([]int, len(p.Legs))
	for i, leg := range p.Legs {
		idx := leg.BucketIndex(opt.Fare.BookingClass)
		if idx < 0 {
			logrus.Errorf("fare class %s not sold on leg %d", opt.Fare.BookingClass, leg.FltNo)
			return false, nil
		}
		if !leg.Buckets[idx].Open() {
			// Menu said open; the class closing mid-arrival means an
			// engine bug, surface loudly.
			logrus.Errorf("sell on closed bucket %s of leg %d", opt.Fare.BookingClass, leg.FltNo)
			leg.Buckets[idx].Spilled++
			return false, nil
		}
		idxs[i] = idx
	}

	for i, leg := range p.Legs {
		idx := idxs[i]
		legRevenue := price
		if e.prorate && len(p.Legs) > 1 {
			if total := p.Distance(); total > 0 {
				legRevenue = price * leg.Distance / total
			} else {
				legRevenue = price / float64(len(p.Legs))
			}
		}
		for j := idx; j < len(leg.Buckets); j++ {
			if leg.Buckets[j].Auth > 0 {
				leg.Buckets[j].Auth--
			}
		}
		b := leg.Buckets[idx]
		b.Sold++
		b.Revenue += legRevenue
		leg.Sold++
		leg.Revenue += legRevenue
		if leg.Sold > leg.Capacity {
			return false, &CapacityViolationError{FltNo: leg.FltNo, Sold: leg.Sold, Capacity: leg.Capacity}
		}
	}

	if pc := p.Class(opt.Fare.BookingClass); pc != nil {
		pc.Sold++
		pc.Revenue += price
	}
	opt.Fare.Sold++
	if du.Business {
		opt.Fare.SoldBusiness++
	}
	opt.Fare.Revenue += price
	du.Sold++
	du.Revenue += price
	return true, nil
}

// recordSpill attributes a denied arrival to the cheapest closed class
// below the paid price (or any closed class on a no-purchase).
func (e *BookingEngine) recordSpill(closed []Option, purchased bool, paid float64) {
	var pick *Option
	for i := range closed {
		opt := &closed[i]
		if purchased && opt.Fare.Price >= paid {
			continue
		}
		if pick == nil || opt.Fare.Price < pick.Fare.Price {
			pick = opt
		}
	}
	if pick == nil {
		return
	}
	for _, leg := range pick.Path.Legs {
		if b := leg.Bucket(pick.Fare.BookingClass); b != nil && !b.Open() {
			b.Spilled++
		}
	}
}
