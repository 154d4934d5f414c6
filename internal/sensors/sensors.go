// Package sensors exposes the host's temperature sensors as named Celsius
// readings and the substring lookup the display loop selects with.
package sensors

import (
	"context"
	"strings"

	gopsutil "github.com/shirou/gopsutil/v4/sensors"
)

// Reading is a single named temperature reading. Readings are produced
// fresh on every query and never persisted.
type Reading struct {
	Sensor  string
	Celsius float64
}

// Provider queries the host for current temperature readings.
// This interface allows for mocking in tests.
type Provider interface {
	Readings(ctx context.Context) ([]Reading, error)
}

// SystemProvider reads temperatures through gopsutil (hwmon on Linux).
type SystemProvider struct{}

// Verify SystemProvider implements Provider interface.
var _ Provider = (*SystemProvider)(nil)

// NewSystemProvider creates a Provider backed by the OS sensor API.
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{}
}

// Readings returns all current temperature readings reported by the host.
func (p *SystemProvider) Readings(ctx context.Context) ([]Reading, error) {
	stats, err := gopsutil.TemperaturesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	readings := make([]Reading, 0, len(stats))
	for _, stat := range stats {
		readings = append(readings, Reading{
			Sensor:  stat.SensorKey,
			Celsius: stat.Temperature,
		})
	}
	return readings, nil
}

// FindBySubstring returns the first reading whose sensor name contains
// substr, case-insensitively. The second return value is false when
// nothing matches; that is an expected state, not an error.
func FindBySubstring(readings []Reading, substr string) (Reading, bool) {
	needle := strings.ToLower(substr)
	for _, r := range readings {
		if strings.Contains(strings.ToLower(r.Sensor), needle) {
			return r, true
		}
	}
	return Reading{}, false
}
