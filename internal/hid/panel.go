// SPDX-License-Identifier: GPL-3.0-only

package hid

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/moyunkz/ocypus-lcd/internal/temperature"
)

// ErrNoDevice is returned when enumeration finds no Ocypus cooler at all.
var ErrNoDevice = errors.New("no Ocypus cooler found")

// ErrNoWorkingInterface is returned when every enumerated interface failed
// to open or to accept a validating write.
var ErrNoWorkingInterface = errors.New("no working Ocypus interface found")

// ErrNotConnected is returned when a write is attempted without an open handle.
var ErrNotConnected = errors.New("device not connected")

// ErrAlreadyConnected is returned when Open is called on an open panel.
var ErrAlreadyConnected = errors.New("panel already connected")

// ErrRateLimitExceeded is returned when device writes exceed the rate limit.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

const (
	// writesPerSecond is the maximum sustained rate of output reports.
	// The firmware needs nothing faster than 1 Hz; this only guards
	// against a misconfigured refresh rate hammering the device.
	writesPerSecond = 30

	// writeBurst is the maximum burst size for output reports.
	writeBurst = 10
)

// Panel owns the HID handle for an Ocypus LCD panel. At most one interface
// is open at a time; all methods are safe for concurrent use.
type Panel struct {
	vendorID  uint16
	productID uint16

	enumerate Enumerator
	open      Opener

	mu      sync.Mutex
	device  Device
	limiter *rate.Limiter
}

// PanelOption is a functional option for configuring a Panel.
type PanelOption func(*Panel)

// WithEnumerator sets a custom device enumerator for testing.
func WithEnumerator(fn Enumerator) PanelOption {
	return func(p *Panel) {
		p.enumerate = fn
	}
}

// WithOpener sets a custom device opener for testing.
func WithOpener(fn Opener) PanelOption {
	return func(p *Panel) {
		p.open = fn
	}
}

// NewPanel creates a Panel for the Iota L36 controller. No I/O happens
// until Open is called.
func NewPanel(opts ...PanelOption) *Panel {
	p := &Panel{
		vendorID:  OcypusVendorID,
		productID: IotaL36ProductID,
		enumerate: EnumerateDevices,
		open:      OpenByPath,
		limiter:   rate.NewLimiter(writesPerSecond, writeBurst),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open walks the priority-ordered candidate interfaces and keeps the first
// one that opens and accepts a validating write of value 0. A candidate
// failure closes any partially-opened handle and moves on; only exhaustion
// of all candidates is an error, carrying the last failure for diagnostics.
func (p *Panel) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		return ErrAlreadyConnected
	}

	candidates, err := Candidates(p.enumerate, p.vendorID, p.productID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return ErrNoDevice
	}

	var lastErr error
	for _, info := range candidates {
		device, err := p.open(info)
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Int("interface", info.Interface).Msg("Failed to open candidate interface")
			continue
		}

		// A successful probe does not guarantee a display change, but it
		// validates the output report path.
		written, err := device.Write(BuildDisplayReport(0))
		if err == nil && written <= 0 {
			err = fmt.Errorf("validation write returned %d bytes", written)
		}
		if err != nil {
			lastErr = err
			log.Debug().
				Err(err).
				Int("interface", info.Interface).
				Uint16("usagePage", info.UsagePage).
				Msg("Candidate interface rejected validating write")
			if cerr := device.Close(); cerr != nil {
				log.Debug().Err(cerr).Msg("Failed to close rejected candidate")
			}
			continue
		}

		p.device = device
		log.Info().Int("interface", info.Interface).Msg("Connected to Ocypus cooler")
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrNoWorkingInterface, lastErr)
	}
	return ErrNoWorkingInterface
}

// SendTemperature converts a Celsius reading to the requested unit, rounds
// it, clamps it to the panel's practical display range and writes it.
func (p *Panel) SendTemperature(celsius float64, unit temperature.Unit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(BuildDisplayReport(temperature.DisplayValue(celsius, unit)))
}

// Keepalive writes a value-0 report to stop the panel from dimming out
// while no sensor reading is available.
func (p *Panel) Keepalive() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(BuildDisplayReport(0))
}

// Blank attempts to blank the panel. Depending on the firmware revision the
// panel may render "000" instead; the true blank flag byte is unknown for
// this report format.
func (p *Panel) Blank() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(BuildBlankReport())
}

// Connected reports whether the panel currently holds an open handle.
func (p *Panel) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device != nil
}

// Info returns the device info of the validated interface.
// The second return value is false when the panel is not connected.
func (p *Panel) Info() (DeviceInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return DeviceInfo{}, false
	}
	return p.device.Info(), true
}

// Close releases the HID handle. It is idempotent and safe to call on an
// already-closed panel.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return nil
	}

	err := p.device.Close()
	p.device = nil
	if err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}

// write sends a report on the open handle. Callers must hold p.mu.
func (p *Panel) write(report []byte) error {
	if p.device == nil {
		return ErrNotConnected
	}
	if !p.limiter.Allow() {
		return ErrRateLimitExceeded
	}

	written, err := p.device.Write(report)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if written <= 0 {
		return fmt.Errorf("write returned %d bytes", written)
	}
	return nil
}
