package air

import (
	"math"
	"testing"
)

func TestNewBookingCurve_Validation(t *testing.T) {
	tests := []struct {
		name    string
		points  map[int]float64
		wantErr bool
	}{
		{"valid", map[int]float64{63: 0.1, 21: 0.5, 0: 1.0}, false},
		{"terminal not one", map[int]float64{63: 0.1, 0: 0.9}, true},
		{"missing terminal", map[int]float64{63: 0.1, 21: 0.5}, true},
		{"not monotone", map[int]float64{63: 0.6, 21: 0.5, 0: 1.0}, true},
		{"out of range", map[int]float64{63: -0.1, 0: 1.0}, true},
		{"empty", map[int]float64{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBookingCurve("c1", tt.points)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBookingCurve(%v) error = %v, wantErr %v", tt.points, err, tt.wantErr)
			}
		})
	}
}

func TestBookingCurve_CumulativeAt_Interpolates(t *testing.T) {
	c, err := NewBookingCurve("c1", map[int]float64{60: 0.2, 20: 0.6, 0: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		daysPrior int
		want      float64
	}{
		{90, 0.2}, // before the first point: clamp to first
		{60, 0.2},
		{40, 0.4}, // halfway between 60 and 20
		{20, 0.6},
		{10, 0.8},
		{0, 1.0},
		{-5, 1.0},
	}
	for _, tt := range tests {
		got := c.CumulativeAt(tt.daysPrior)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("CumulativeAt(%d) = %v, want %v", tt.daysPrior, got, tt.want)
		}
	}
}

func TestBookingCurve_Increments_SumToOne(t *testing.T) {
	c, err := NewBookingCurve("c1", map[int]float64{63: 0.06, 42: 0.25, 21: 0.6, 7: 0.85, 0: 1.0})
	if err != nil {
		t.Fatal(err)
	}
	dcps := []int{63, 42, 21, 7, 0}
	inc := c.Increments(dcps)
	if len(inc) != len(dcps) {
		t.Fatalf("got %d increments, want %d", len(inc), len(dcps))
	}
	sum := 0.0
	for i, v := range inc {
		if v < 0 {
			t.Errorf("increment %d is negative: %v", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("increments sum to %v, want 1.0", sum)
	}
	// First increment covers everything booked by the first checkpoint.
	if math.Abs(inc[0]-0.06) > 1e-12 {
		t.Errorf("first increment = %v, want 0.06", inc[0])
	}
}
