// SPDX-License-Identifier: GPL-3.0-only

// Package temperature provides utilities for converting Celsius sensor
// readings into the integer values the L36 panel displays.
package temperature

import (
	"fmt"
	"math"
	"strings"
)

// Unit is a display temperature unit.
type Unit string

const (
	// Celsius displays the reading unchanged.
	Celsius Unit = "c"

	// Fahrenheit converts the reading before display. The firmware's
	// unit/icon flag byte is unknown, so conversion is digit-content only.
	Fahrenheit Unit = "f"
)

// MaxDisplayValue is the practical display cap for this firmware. Converted
// values above it are clamped, not scaled; the panel has three digits but
// nothing meaningful to show past boiling point.
const MaxDisplayValue = 212

// ParseUnit parses a unit flag value ("c" or "f", case-insensitive).
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(s)) {
	case Celsius:
		return Celsius, nil
	case Fahrenheit:
		return Fahrenheit, nil
	default:
		return "", fmt.Errorf("invalid unit %q: must be c or f", s)
	}
}

// Convert converts a Celsius reading to the given unit.
func Convert(celsius float64, unit Unit) float64 {
	if unit == Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}

// DisplayValue converts, rounds and clamps a Celsius reading to the integer
// the panel should display. Clamping is idempotent: values already inside
// [0, MaxDisplayValue] pass through unchanged.
func DisplayValue(celsius float64, unit Unit) int {
	value := int(math.Round(Convert(celsius, unit)))
	return Clamp(value)
}

// Clamp restricts a value to the panel's display range.
func Clamp(value int) int {
	if value < 0 {
		return 0
	}
	if value > MaxDisplayValue {
		return MaxDisplayValue
	}
	return value
}

// Symbol returns the human-readable symbol for a unit.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}
