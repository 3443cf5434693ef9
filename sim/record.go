package sim

// Record is one structured output row. Every dynamic record carries its
// (scenario, trial, sample, days_prior) addressing key; the sink decides
// how rows are persisted.
type Record interface {
	Table() string
}

// LegDetail is the per-sample, per-checkpoint state of one leg.
type LegDetail struct {
	Scenario  string
	Trial     int
	Sample    int
	DaysPrior int
	FltNo     int
	Sold      int
	Revenue   float64
	Demand    float64 // observed demand: sold plus spill at this point
	FcstMean  float64
	BidPrice  float64
}

func (LegDetail) Table() string { return "leg_detail" }

// LegBucketDetail is the per-sample, per-checkpoint state of one bucket.
type LegBucketDetail struct {
	Scenario     string
	Trial        int
	Sample       int
	DaysPrior    int
	FltNo        int
	BucketNumber int
	Name         string
	Auth         int
	Sold         int
	Revenue      float64
	FcstMean     float64
	FcstStdev    float64
}

func (LegBucketDetail) Table() string { return "leg_bucket_detail" }

// DemandDetail is the end-of-sample outcome of one demand unit.
type DemandDetail struct {
	Scenario     string
	Trial        int
	Sample       int
	Orig         string
	Dest         string
	Segment      string
	SampleDemand int
	Sold         int
	NoGo         int
	Revenue      float64
}

func (DemandDetail) Table() string { return "demand_detail" }

// FareDetail is the per-sample, per-checkpoint sales state of one fare.
type FareDetail struct {
	Scenario     string
	Trial        int
	Sample       int
	DaysPrior    int
	FareID       int
	Sold         int
	SoldBusiness int
}

func (FareDetail) Table() string { return "fare_detail" }

// BookingsByTimeframe is a trial-level aggregate of bookings per carrier,
// class, and checkpoint, over non-burn samples only.
type BookingsByTimeframe struct {
	Scenario     string
	Trial        int
	Carrier      string
	BookingClass string
	DaysPrior    int
	TotSold      float64
	AvgSold      float64
	AvgBusiness  float64
	AvgLeisure   float64
	AvgRevenue   float64
	AvgPrice     float64
}

func (BookingsByTimeframe) Table() string { return "bookings_by_timeframe" }

// LegSummary is a run-level aggregate for one leg over non-burn samples.
type LegSummary struct {
	Scenario   string
	FltNo      int
	Carrier    string
	Orig       string
	Dest       string
	AvgSold    float64
	AvgRevenue float64
	LoadFactor float64
}

func (LegSummary) Table() string { return "leg_summary" }

// CarrierSummary is a run-level aggregate for one carrier over non-burn
// samples: average per-sample revenue and bookings, system load factor,
// and yield (revenue per passenger mile).
type CarrierSummary struct {
	Scenario   string
	Carrier    string
	AvgRevenue float64
	AvgSold    float64
	LoadFactor float64
	Yield      float64
}

func (CarrierSummary) Table() string { return "carrier_summary" }

// Sink consumes output records. WriteDefs is called once before the run;
// Write is called from a single writer goroutine, so implementations
// need not be concurrency-safe. A Write error aborts the run.
type Sink interface {
	WriteDefs(sc *Scenario) error
	Write(rec Record) error
	Close() error
}

// NullSink discards everything. Used when persistence is disabled and in
// tests that only care about summaries.
type NullSink struct{}

func (NullSink) WriteDefs(*Scenario) error { return nil }
func (NullSink) Write(Record) error        { return nil }
func (NullSink) Close() error              { return nil }
