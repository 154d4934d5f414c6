// Package hid provides abstractions for interacting with the Ocypus cooler LCD hardware.
package hid

//go:generate mockgen -source=device.go -destination=mocks/device_mock.go -package=mocks

// DeviceInfo contains information about a HID device interface.
type DeviceInfo struct {
	Path      string
	VendorID  uint16
	ProductID uint16
	Product   string
	Interface int
	UsagePage uint16
	Usage     uint16
}

// Device represents an interface for HID device operations.
// This interface allows for mocking in tests.
type Device interface {
	// Write sends an output report to the device.
	// The first byte is the report ID.
	Write(data []byte) (int, error)

	// Close closes the device handle.
	Close() error

	// Info returns information about the device.
	Info() DeviceInfo
}

// Enumerator lists candidate device interfaces for a vendor/product pair.
type Enumerator func(vendorID, productID uint16) ([]DeviceInfo, error)

// Opener opens a HID device interface by its platform path.
type Opener func(info DeviceInfo) (Device, error)
