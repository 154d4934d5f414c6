// SPDX-License-Identifier: GPL-3.0-only

// Package display implements the polling loop that streams sensor
// temperatures to the panel and keeps it alive when no sensor matches.
package display

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moyunkz/ocypus-lcd/internal/sensors"
	"github.com/moyunkz/ocypus-lcd/internal/temperature"
)

const (
	// DefaultRefreshInterval is the default poll cadence.
	DefaultRefreshInterval = time.Second

	// DefaultKeepaliveInterval is the default gap between value-0 writes
	// while no sensor matches.
	DefaultKeepaliveInterval = 2 * time.Second

	// DefaultSensorSubstring selects the AMD CPU die sensor on Linux.
	DefaultSensorSubstring = "k10temp"
)

// Panel is the device surface the loop drives.
// This interface allows for mocking in tests.
type Panel interface {
	Open() error
	Close() error
	SendTemperature(celsius float64, unit temperature.Unit) error
	Keepalive() error
}

// Config holds the loop's tuning knobs. Zero values fall back to defaults.
type Config struct {
	SensorSubstring   string
	Unit              temperature.Unit
	RefreshInterval   time.Duration
	KeepaliveInterval time.Duration
}

// normalize fills defaults and floors the keepalive interval to the refresh
// interval; a shorter keepalive interval would fire on every idle tick.
func (c Config) normalize() Config {
	if c.SensorSubstring == "" {
		c.SensorSubstring = DefaultSensorSubstring
	}
	if c.Unit == "" {
		c.Unit = temperature.Celsius
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.KeepaliveInterval < c.RefreshInterval {
		c.KeepaliveInterval = c.RefreshInterval
	}
	return c
}

// Loop polls the temperature provider on a fixed cadence and writes the
// selected reading to the panel. The loop is the sole owner of the device
// handle while running; hot-plug events only reach it through the
// reconnect channel it drains between writes.
type Loop struct {
	panel    Panel
	provider sensors.Provider
	cfg      Config

	reconnect chan struct{}
	now       func() time.Time

	lastKeepalive    time.Time
	pendingReconnect bool
}

// LoopOption is a functional option for configuring a Loop.
type LoopOption func(*Loop)

// WithClock sets a custom monotonic clock for testing.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		l.now = now
	}
}

// NewLoop creates a display loop over the given panel and sensor provider.
func NewLoop(panel Panel, provider sensors.Provider, cfg Config, opts ...LoopOption) *Loop {
	l := &Loop{
		panel:     panel,
		provider:  provider,
		cfg:       cfg.normalize(),
		reconnect: make(chan struct{}, 1),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RequestReconnect asks the loop to close and re-open the panel on its next
// tick. Safe to call from any goroutine; coalesces repeated requests.
func (l *Loop) RequestReconnect() {
	select {
	case l.reconnect <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled. Errors inside one iteration are logged
// and absorbed; only cancellation ends the loop, and never mid-write.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().
		Str("sensor", l.cfg.SensorSubstring).
		Str("unit", l.cfg.Unit.Symbol()).
		Dur("refresh", l.cfg.RefreshInterval).
		Msg("Starting temperature display loop")

	ticker := time.NewTicker(l.cfg.RefreshInterval)
	defer ticker.Stop()

	l.lastKeepalive = l.now()

	for {
		l.tick(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Display loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// tick performs one poll cycle: reconnect if requested, read sensors, send
// the matched reading or keep the panel alive.
func (l *Loop) tick(ctx context.Context) {
	l.maybeReconnect()

	readings, err := l.provider.Readings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read temperature sensors")
	}

	reading, ok := sensors.FindBySubstring(readings, l.cfg.SensorSubstring)
	if !ok {
		l.idleTick()
		return
	}

	if err := l.panel.SendTemperature(reading.Celsius, l.cfg.Unit); err != nil {
		log.Warn().Err(err).Str("sensor", reading.Sensor).Msg("Failed to send temperature")
		return
	}

	log.Debug().
		Str("sensor", reading.Sensor).
		Float64("value", temperature.Convert(reading.Celsius, l.cfg.Unit)).
		Str("unit", l.cfg.Unit.Symbol()).
		Msg("Temperature sent")
}

// idleTick handles a cycle with no matching sensor: not an error, but the
// panel dims out without traffic, so send a value-0 report once enough time
// has passed since the last keepalive.
func (l *Loop) idleTick() {
	log.Debug().Str("sensor", l.cfg.SensorSubstring).Msg("No matching sensor found")

	if l.now().Sub(l.lastKeepalive) < l.cfg.KeepaliveInterval {
		return
	}

	if err := l.panel.Keepalive(); err != nil {
		log.Warn().Err(err).Msg("Keepalive write failed")
	}
	l.lastKeepalive = l.now()
}

// maybeReconnect re-opens the panel after a hot-plug event. A failed
// attempt stays pending and is retried on the next tick, so a device that
// needs time to enumerate its interfaces recovers on the loop's cadence.
func (l *Loop) maybeReconnect() {
	select {
	case <-l.reconnect:
		l.pendingReconnect = true
	default:
	}
	if !l.pendingReconnect {
		return
	}

	if err := l.panel.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close panel during reconnect")
	}
	if err := l.panel.Open(); err != nil {
		log.Debug().Err(err).Msg("Reconnect attempt failed, retrying next tick")
		return
	}

	l.pendingReconnect = false
	log.Info().Msg("Panel reconnected")
}
