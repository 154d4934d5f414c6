package temperature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyunkz/ocypus-lcd/internal/temperature"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		celsius float64
		unit    temperature.Unit
		want    float64
	}{
		{name: "freezing point to fahrenheit", celsius: 0, unit: temperature.Fahrenheit, want: 32},
		{name: "boiling point to fahrenheit", celsius: 100, unit: temperature.Fahrenheit, want: 212},
		{name: "body temperature to fahrenheit", celsius: 37, unit: temperature.Fahrenheit, want: 98.6},
		{name: "celsius is identity", celsius: 45.5, unit: temperature.Celsius, want: 45.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, temperature.Convert(tt.celsius, tt.unit), 0.0001)
		})
	}
}

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		name    string
		celsius float64
		unit    temperature.Unit
		want    int
	}{
		{name: "rounds to nearest", celsius: 45.4, unit: temperature.Celsius, want: 45},
		{name: "rounds half up", celsius: 45.5, unit: temperature.Celsius, want: 46},
		{name: "converts then rounds", celsius: 45, unit: temperature.Fahrenheit, want: 113},
		{name: "clamps above display cap", celsius: 150, unit: temperature.Fahrenheit, want: 212},
		{name: "clamps below zero", celsius: -40, unit: temperature.Celsius, want: 0},
		{name: "cap itself passes through", celsius: 100, unit: temperature.Fahrenheit, want: 212},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, temperature.DisplayValue(tt.celsius, tt.unit))
		})
	}
}

func TestClamp_Idempotent(t *testing.T) {
	for _, v := range []int{-50, 0, 100, 212, 500} {
		clamped := temperature.Clamp(v)
		assert.Equal(t, clamped, temperature.Clamp(clamped))
	}
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		input   string
		want    temperature.Unit
		wantErr bool
	}{
		{input: "c", want: temperature.Celsius},
		{input: "C", want: temperature.Celsius},
		{input: "f", want: temperature.Fahrenheit},
		{input: "F", want: temperature.Fahrenheit},
		{input: "k", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("input "+tt.input, func(t *testing.T) {
			unit, err := temperature.ParseUnit(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, unit)
		})
	}
}

func TestUnit_Symbol(t *testing.T) {
	assert.Equal(t, "°C", temperature.Celsius.Symbol())
	assert.Equal(t, "°F", temperature.Fahrenheit.Symbol())
}
