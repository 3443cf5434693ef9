package rm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep_RejectsUnknownVariants(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StepConfig
		wantErr bool
	}{
		{"em untruncation", StepConfig{StepType: "untruncation", Algorithm: "em"}, false},
		{"unknown untruncation algorithm", StepConfig{StepType: "untruncation", Algorithm: "magic"}, true},
		{"exp smoothing", StepConfig{StepType: "forecast", Algorithm: "exp_smoothing", Alpha: 0.2}, false},
		{"alpha out of range", StepConfig{StepType: "forecast", Algorithm: "exp_smoothing", Alpha: 1.5}, true},
		{"additive pickup", StepConfig{StepType: "forecast", Algorithm: "additive_pickup"}, false},
		{"unknown forecast algorithm", StepConfig{StepType: "forecast", Algorithm: "prophet"}, true},
		{"emsrb", StepConfig{StepType: "emsr", Algorithm: "emsrb"}, false},
		{"emsr on paths", StepConfig{StepType: "emsr", Algorithm: "emsrb", Kind: "path"}, true},
		{"probp must be path kind", StepConfig{StepType: "probp"}, true},
		{"probp", StepConfig{StepType: "probp", Kind: "path"}, false},
		{"unknown kind", StepConfig{StepType: "untruncation", Algorithm: "none", Kind: "cabin"}, true},
		{"unknown step type", StepConfig{StepType: "overbooking"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStep(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseStep_DefaultsAlpha(t *testing.T) {
	step, err := ParseStep(StepConfig{StepType: "forecast", Algorithm: "exp_smoothing"})
	require.NoError(t, err)
	fs, ok := step.(*ForecastStep)
	require.True(t, ok)
	assert.Equal(t, 0.15, fs.Alpha)
}

func TestNewSystem_OrderingValidation(t *testing.T) {
	legPipeline := []StepConfig{
		{StepType: "untruncation", Algorithm: "em"},
		{StepType: "forecast", Algorithm: "exp_smoothing"},
		{StepType: "emsr", Algorithm: "emsrb"},
	}
	bpPipeline := []StepConfig{
		{StepType: "untruncation", Algorithm: "em", Kind: "path"},
		{StepType: "forecast", Algorithm: "exp_smoothing", Kind: "path"},
		{StepType: "probp", Kind: "path"},
		{StepType: "aggregation"},
		{StepType: "emsr", Algorithm: "emsrb"},
	}

	tests := []struct {
		name    string
		control string
		steps   []StepConfig
		wantErr string
	}{
		{"leg pipeline", "leg", legPipeline, ""},
		{"bp pipeline", "bp", bpPipeline, ""},
		{"fcfs only", "none", []StepConfig{{StepType: "fcfs"}}, ""},
		{
			"forecast without untruncation", "leg",
			[]StepConfig{{StepType: "forecast", Algorithm: "exp_smoothing"}},
			"requires an earlier untruncation",
		},
		{
			"emsr without forecast", "leg",
			[]StepConfig{{StepType: "emsr", Algorithm: "emsrb"}},
			"requires an earlier leg forecast",
		},
		{
			"forecast kind mismatch", "leg",
			[]StepConfig{
				{StepType: "untruncation", Algorithm: "em", Kind: "path"},
				{StepType: "forecast", Algorithm: "exp_smoothing", Kind: "leg"},
			},
			"same kind",
		},
		{"probp under leg control", "leg", bpPipeline, "availability_control"},
		{
			"probp without aggregation", "bp",
			bpPipeline[:3],
			"aggregation",
		},
		{"unknown control", "auction", legPipeline, "availability_control"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSystem("sys", tt.control, tt.steps)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
