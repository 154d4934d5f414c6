package hid

const (
	// ReportID is the HID output report ID accepted by the L36 panel firmware.
	ReportID byte = 0x07

	// ReportLength is the total output report length in bytes, including the report ID.
	ReportLength = 64

	// OcypusVendorID is the USB vendor ID for Ocypus coolers.
	OcypusVendorID uint16 = 0x1a2c

	// IotaL36ProductID is the USB product ID for the Iota L36 LCD controller.
	IotaL36ProductID uint16 = 0x434d

	// vendorUsagePageMin is the start of the HID vendor-defined usage page range.
	vendorUsagePageMin uint16 = 0xFF00
)

const (
	headerByte = 0xFF
)

// BuildDisplayReport encodes an integer value as an L36 output report:
//
//	[0]    report ID
//	[1..2] header marker 0xFF 0xFF
//	[3..5] hundreds, tens, ones digits
//	[6..]  zero padding
//
// Values outside [0, 999] are clamped before digit decomposition.
func BuildDisplayReport(value int) []byte {
	if value < 0 {
		value = 0
	}
	if value > 999 {
		value = 999
	}

	report := make([]byte, ReportLength)
	report[0] = ReportID
	report[1] = headerByte
	report[2] = headerByte
	report[3] = byte(value / 100)
	report[4] = byte(value % 100 / 10)
	report[5] = byte(value % 10)
	return report
}

// BuildBlankReport builds a report with only the report ID set.
// Intended to blank the panel; some firmware revisions render "000" instead.
func BuildBlankReport() []byte {
	report := make([]byte, ReportLength)
	report[0] = ReportID
	return report
}
