// Package udev provides hot-plug detection for the Ocypus cooler via netlink/udev events.
package udev

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/pilebones/go-udev/netlink"
	"github.com/rs/zerolog/log"
)

// netlinkBufferSize is the receive buffer size for the netlink socket.
// USB hot-plug generates many netlink messages rapidly; a larger buffer
// reduces ENOBUFS errors.
const netlinkBufferSize = 2 * 1024 * 1024 // 2 MB

const (
	// ocypusVendorID is the USB vendor ID in udev PRODUCT format (no leading zeros).
	ocypusVendorID = "1a2c"

	// iotaL36ProductID is the USB product ID in udev PRODUCT format.
	iotaL36ProductID = "434d"
)

// EventType represents the type of device event.
type EventType int

const (
	// EventAdd indicates the cooler was connected.
	EventAdd EventType = iota
	// EventRemove indicates the cooler was disconnected.
	EventRemove
	// EventRecovery indicates netlink events may have been dropped
	// (buffer overflow) and the device state should be re-validated.
	EventRecovery
)

// Event represents a device hot-plug event.
type Event struct {
	Type EventType
}

// Notify is called for every device event. It runs on the monitor's
// goroutine and must not block.
type Notify func(Event)

// Monitor watches for Ocypus cooler connect/disconnect events.
type Monitor struct {
	notify Notify

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	stopped bool
}

// NewMonitor creates a udev monitor delivering events to notify.
func NewMonitor(notify Notify) *Monitor {
	return &Monitor{notify: notify}
}

// Start begins monitoring for device events in a background goroutine.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return fmt.Errorf("monitor already started")
	}

	m.conn = &netlink.UEventConn{}
	if err := m.conn.Connect(netlink.UdevEvent); err != nil {
		m.conn = nil
		return fmt.Errorf("failed to connect to netlink: %w", err)
	}

	if err := setSocketBufferSize(m.conn.Fd, netlinkBufferSize); err != nil {
		// The default buffer may still be enough for a single cooler.
		log.Warn().Err(err).Int("size", netlinkBufferSize).Msg("Failed to set netlink buffer size")
	}

	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.quit = m.conn.Monitor(queue, errs, matchRules())
	m.stopped = false

	go m.processEvents(queue, errs)

	log.Info().Msg("udev monitor started")
	return nil
}

// Stop stops the monitor and releases resources.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || m.stopped {
		return nil
	}

	m.stopped = true

	select {
	case m.quit <- struct{}{}:
	default:
	}

	if err := m.conn.Close(); err != nil {
		return fmt.Errorf("failed to close netlink connection: %w", err)
	}

	m.conn = nil
	log.Info().Msg("udev monitor stopped")
	return nil
}

// matchRules builds matchers for add/remove of the cooler's USB device.
// The PRODUCT env var format is "vendorId/productId/bcdDevice"; the pattern
// is anchored so e.g. "1a2c/434d1" cannot match.
func matchRules() *netlink.RuleDefinitions {
	rules := &netlink.RuleDefinitions{}

	addAction := "add"
	removeAction := "remove"
	productPattern := fmt.Sprintf("^%s/%s/[^/]+$", ocypusVendorID, iotaL36ProductID)

	rules.AddRule(netlink.RuleDefinition{
		Action: &addAction,
		Env: map[string]string{
			"SUBSYSTEM": "^usb$",
			"PRODUCT":   productPattern,
		},
	})
	rules.AddRule(netlink.RuleDefinition{
		Action: &removeAction,
		Env: map[string]string{
			"SUBSYSTEM": "^usb$",
			"PRODUCT":   productPattern,
		},
	})

	return rules
}

// processEvents handles incoming udev events until the channels close.
func (m *Monitor) processEvents(queue chan netlink.UEvent, errs chan error) {
	for {
		select {
		case event, ok := <-queue:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-errs:
			if !ok {
				return
			}

			m.mu.Lock()
			stopped := m.stopped
			m.mu.Unlock()
			if stopped {
				return
			}

			if isBufferOverflowError(err) {
				// Events may have been dropped; let the caller re-validate
				// the device state rather than trusting the event stream.
				log.Warn().Msg("Netlink buffer overflow, requesting recovery")
				if m.notify != nil {
					m.notify(Event{Type: EventRecovery})
				}
				continue
			}

			log.Error().Err(err).Msg("udev monitor error")
		}
	}
}

// handleEvent filters and forwards a single udev event.
func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	// On ADD, only react to the usb_device node, not each usb_interface.
	// On REMOVE, DEVTYPE may already be gone, so the check is skipped.
	if uevent.Action == netlink.ADD && uevent.Env["DEVTYPE"] != "usb_device" {
		return
	}

	var eventType EventType
	switch uevent.Action {
	case netlink.ADD:
		eventType = EventAdd
		log.Info().Str("product", uevent.Env["PRODUCT"]).Msg("Ocypus cooler connected")
	case netlink.REMOVE:
		eventType = EventRemove
		log.Info().Str("product", uevent.Env["PRODUCT"]).Msg("Ocypus cooler disconnected")
	default:
		return
	}

	if m.notify != nil {
		m.notify(Event{Type: eventType})
	}
}

// setSocketBufferSize sets the receive buffer size for a socket, trying
// SO_RCVBUFFORCE (needs CAP_NET_ADMIN) before the rmem_max-capped SO_RCVBUF.
func setSocketBufferSize(fd int, size int) error {
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUFFORCE, size); err == nil {
		return nil
	}
	return syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, size)
}

// isBufferOverflowError checks if the error is a netlink buffer overflow.
func isBufferOverflowError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENOBUFS) {
		return true
	}
	// The udev library does not always wrap the errno.
	return strings.Contains(strings.ToLower(err.Error()), "no buffer space available")
}
