package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maitreyeee/passengersim/sim/rm"
)

// Config is the YAML network file. Top-level keys follow the recognized
// input schema; unknown keys are rejected so typos fail fast.
type Config struct {
	Scenario      string                       `yaml:"scenario"`
	Controls      ControlsConfig               `yaml:"simulation_controls"`
	RMSystems     map[string]RMSystemConfig    `yaml:"rm_systems"`
	ChoiceModels  map[string]ChoiceModelConfig `yaml:"choice_models"`
	Airlines      map[string]AirlineConfig     `yaml:"airlines"`
	Classes       []string                     `yaml:"classes"`
	DCPs          []int                        `yaml:"dcps"`
	BookingCurves map[string]CurveConfig       `yaml:"booking_curves"`
	Legs          []LegConfig                  `yaml:"legs"`
	Paths         []PathConfig                 `yaml:"paths"`
	Fares         []FareConfig                 `yaml:"fares"`
	Demands       []DemandConfig               `yaml:"demands"`
	Distances     []DistanceConfig             `yaml:"distance"`
}

// ControlsConfig holds the simulation_controls block.
type ControlsConfig struct {
	RandomSeed       int64   `yaml:"random_seed"`
	NumTrials        int     `yaml:"num_trials"`
	NumSamples       int     `yaml:"num_samples"`
	BurnSamples      int     `yaml:"burn_samples"`
	SysKFactor       float64 `yaml:"sys_k_factor"`
	MktKFactor       float64 `yaml:"mkt_k_factor"`
	PaxTypeKFactor   float64 `yaml:"pax_type_k_factor"`
	TFKFactor        float64 `yaml:"tf_k_factor"`
	ZFactor          float64 `yaml:"z_factor"`
	ProrateRevenue   *bool   `yaml:"prorate_revenue"`
	DWMLite          bool    `yaml:"dwm_lite"`
	MaxConnectTime   int     `yaml:"max_connect_time"`
	DisableAP        bool    `yaml:"disable_ap"`
	DemandMultiplier float64 `yaml:"demand_multiplier"`
	ManualPaths      *bool   `yaml:"manual_paths"`
}

// RMSystemConfig is one named RM system definition.
type RMSystemConfig struct {
	AvailabilityControl string          `yaml:"availability_control"`
	Steps               []rm.StepConfig `yaml:"steps"`
}

// ChoiceModelConfig is one named choice-model parameterization.
type ChoiceModelConfig struct {
	Kind             string    `yaml:"kind"`
	Emult            float64   `yaml:"emult"`
	BasefareMult     float64   `yaml:"basefare_mult"`
	PathQuality      []float64 `yaml:"path_quality"`
	PreferredAirline []float64 `yaml:"preferred_airline"`
	Tolerance        float64   `yaml:"tolerance"`
	R1               float64   `yaml:"r1"`
	R2               float64   `yaml:"r2"`
	R3               float64   `yaml:"r3"`
	R4               float64   `yaml:"r4"`
}

// AirlineConfig names the RM system a carrier runs.
type AirlineConfig struct {
	RMSystem string `yaml:"rm_system"`
}

// CurveConfig is a named booking curve: days prior → cumulative fraction.
type CurveConfig struct {
	Curve map[int]float64 `yaml:"curve"`
}

// LegConfig is one scheduled flight leg.
type LegConfig struct {
	Carrier  string  `yaml:"carrier"`
	FltNo    int     `yaml:"fltno"`
	Orig     string  `yaml:"orig"`
	Dest     string  `yaml:"dest"`
	DepTime  string  `yaml:"dep_time"`
	ArrTime  string  `yaml:"arr_time"`
	Capacity int     `yaml:"capacity"`
	Distance float64 `yaml:"distance"`
}

// PathConfig references legs by flight number.
type PathConfig struct {
	Orig             string  `yaml:"orig"`
	Dest             string  `yaml:"dest"`
	Legs             []int   `yaml:"legs"`
	PathQualityIndex float64 `yaml:"path_quality_index"`
}

// FareConfig is one priced product.
type FareConfig struct {
	Carrier         string   `yaml:"carrier"`
	Orig            string   `yaml:"orig"`
	Dest            string   `yaml:"dest"`
	BookingClass    string   `yaml:"booking_class"`
	Price           float64  `yaml:"price"`
	AdvancePurchase int      `yaml:"advance_purchase"`
	Restrictions    []string `yaml:"restrictions"`
	Category        string   `yaml:"category"`
}

// DemandConfig is one origin-destination passenger-segment market.
type DemandConfig struct {
	Orig          string  `yaml:"orig"`
	Dest          string  `yaml:"dest"`
	Segment       string  `yaml:"segment"`
	BaseDemand    float64 `yaml:"base_demand"`
	ReferenceFare float64 `yaml:"reference_fare"`
	ChoiceModel   string  `yaml:"choice_model"`
	Curve         string  `yaml:"curve"`
}

// DistanceConfig is a great-circle mileage input for an airport pair.
type DistanceConfig struct {
	Orig  string  `yaml:"orig"`
	Dest  string  `yaml:"dest"`
	Miles float64 `yaml:"miles"`
}

// LoadConfig reads and decodes a network file. Unknown YAML keys are
// errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML network content and applies defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, configErrorf("decoding network file: %v", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadDistances reads a supplemental airports file holding only a
// distance block. Entries are appended to the network's own list;
// NewScenario resolves duplicates by last writer.
func LoadDistances(path string) ([]DistanceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading airports file: %w", err)
	}
	var doc struct {
		Distances []DistanceConfig `yaml:"distance"`
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, configErrorf("decoding airports file: %v", err)
	}
	return doc.Distances, nil
}

func (c *Config) applyDefaults() {
	ctl := &c.Controls
	if ctl.NumTrials == 0 {
		ctl.NumTrials = 1
	}
	if ctl.NumSamples == 0 {
		ctl.NumSamples = 600
	}
	if ctl.BurnSamples == 0 {
		ctl.BurnSamples = 100
	}
	if ctl.SysKFactor == 0 {
		ctl.SysKFactor = 0.10
	}
	if ctl.MktKFactor == 0 {
		ctl.MktKFactor = 0.20
	}
	if ctl.PaxTypeKFactor == 0 {
		ctl.PaxTypeKFactor = 0.40
	}
	if ctl.TFKFactor == 0 {
		ctl.TFKFactor = 0.10
	}
	if ctl.ZFactor == 0 {
		ctl.ZFactor = 2.0
	}
	if ctl.DemandMultiplier == 0 {
		ctl.DemandMultiplier = 1.0
	}
	if ctl.ProrateRevenue == nil {
		t := true
		ctl.ProrateRevenue = &t
	}
	if ctl.ManualPaths == nil {
		t := true
		ctl.ManualPaths = &t
	}
	if ctl.MaxConnectTime == 0 {
		ctl.MaxConnectTime = 240
	}
}

// parseClock converts "HH:MM" to minutes after midnight.
func parseClock(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad time %q, want HH:MM", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return hh*60 + mm, nil
}
