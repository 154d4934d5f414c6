package hid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyunkz/ocypus-lcd/internal/hid"
)

func TestBuildDisplayReport_FullRange(t *testing.T) {
	for v := 0; v <= 999; v++ {
		report := hid.BuildDisplayReport(v)

		require.Len(t, report, hid.ReportLength)
		assert.Equal(t, hid.ReportID, report[0])
		assert.Equal(t, byte(0xFF), report[1])
		assert.Equal(t, byte(0xFF), report[2])

		decoded := int(report[3])*100 + int(report[4])*10 + int(report[5])
		assert.Equal(t, v, decoded, "value %d decoded incorrectly", v)

		for i, b := range report[3:6] {
			assert.LessOrEqual(t, b, byte(9), "digit byte %d out of range for value %d", i+3, v)
		}
		for i := 6; i < hid.ReportLength; i++ {
			assert.Zero(t, report[i], "padding byte %d not zero for value %d", i, v)
		}
	}
}

func TestBuildDisplayReport_Clamping(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{name: "negative clamps to zero", value: -1, want: 0},
		{name: "large negative clamps to zero", value: -1000, want: 0},
		{name: "above range clamps to 999", value: 1000, want: 999},
		{name: "far above range clamps to 999", value: 123456, want: 999},
		{name: "lower bound is identity", value: 0, want: 0},
		{name: "upper bound is identity", value: 999, want: 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, hid.BuildDisplayReport(tt.want), hid.BuildDisplayReport(tt.value))
		})
	}
}

func TestBuildDisplayReport_Deterministic(t *testing.T) {
	assert.Equal(t, hid.BuildDisplayReport(451), hid.BuildDisplayReport(451))
}

func TestBuildBlankReport(t *testing.T) {
	report := hid.BuildBlankReport()

	require.Len(t, report, hid.ReportLength)
	assert.Equal(t, hid.ReportID, report[0])
	for i := 1; i < hid.ReportLength; i++ {
		assert.Zero(t, report[i], "byte %d not zero", i)
	}
}
