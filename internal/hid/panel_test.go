package hid_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/moyunkz/ocypus-lcd/internal/hid"
	"github.com/moyunkz/ocypus-lcd/internal/hid/mocks"
	"github.com/moyunkz/ocypus-lcd/internal/temperature"
)

// newConnectedPanel opens a panel against a single mocked candidate,
// consuming the validating write expectation.
func newConnectedPanel(t *testing.T, device *mocks.MockDevice) *hid.Panel {
	t.Helper()

	info := hid.DeviceInfo{Path: "p1", Interface: 1, UsagePage: 0xFF01}
	device.EXPECT().Write(hid.BuildDisplayReport(0)).Return(hid.ReportLength, nil)

	panel := hid.NewPanel(
		hid.WithEnumerator(fixedEnumerator([]hid.DeviceInfo{info})),
		hid.WithOpener(func(hid.DeviceInfo) (hid.Device, error) {
			return device, nil
		}),
	)
	require.NoError(t, panel.Open())
	return panel
}

func TestPanel_Open_NoDevice(t *testing.T) {
	panel := hid.NewPanel(hid.WithEnumerator(fixedEnumerator(nil)))

	err := panel.Open()
	assert.ErrorIs(t, err, hid.ErrNoDevice)
	assert.False(t, panel.Connected())
}

func TestPanel_Open_EnumerationError(t *testing.T) {
	panel := hid.NewPanel(hid.WithEnumerator(func(vendorID, productID uint16) ([]hid.DeviceInfo, error) {
		return nil, errors.New("enumeration failed")
	}))

	err := panel.Open()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, hid.ErrNoDevice)
}

func TestPanel_Open_FallsBackToNextCandidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Sorted order puts the higher interface first; its validating write
	// fails and the handle must be released before moving on.
	rejected := mocks.NewMockDevice(ctrl)
	rejected.EXPECT().Write(gomock.Any()).Return(0, errors.New("broken pipe"))
	rejected.EXPECT().Close().Return(nil)

	accepted := mocks.NewMockDevice(ctrl)
	accepted.EXPECT().Write(hid.BuildDisplayReport(0)).Return(hid.ReportLength, nil)
	accepted.EXPECT().Info().Return(hid.DeviceInfo{Path: "good", Interface: 1}).AnyTimes()

	infos := []hid.DeviceInfo{
		{Path: "bad", Interface: 3, UsagePage: 0xFF01},
		{Path: "good", Interface: 1, UsagePage: 0xFF01},
	}
	devices := map[string]hid.Device{"bad": rejected, "good": accepted}

	panel := hid.NewPanel(
		hid.WithEnumerator(fixedEnumerator(infos)),
		hid.WithOpener(func(info hid.DeviceInfo) (hid.Device, error) {
			return devices[info.Path], nil
		}),
	)

	require.NoError(t, panel.Open())

	info, ok := panel.Info()
	require.True(t, ok)
	assert.Equal(t, "good", info.Path)
}

func TestPanel_Open_ZeroByteValidationWriteRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	device.EXPECT().Write(gomock.Any()).Return(0, nil)
	device.EXPECT().Close().Return(nil)

	panel := hid.NewPanel(
		hid.WithEnumerator(fixedEnumerator([]hid.DeviceInfo{{Path: "p1", Interface: 1}})),
		hid.WithOpener(func(hid.DeviceInfo) (hid.Device, error) {
			return device, nil
		}),
	)

	err := panel.Open()
	assert.ErrorIs(t, err, hid.ErrNoWorkingInterface)
}

func TestPanel_Open_AllCandidatesFailCarriesLastError(t *testing.T) {
	panel := hid.NewPanel(
		hid.WithEnumerator(fixedEnumerator([]hid.DeviceInfo{
			{Path: "p1", Interface: 1},
			{Path: "p2", Interface: 2},
		})),
		hid.WithOpener(func(info hid.DeviceInfo) (hid.Device, error) {
			return nil, errors.New("open failed: " + info.Path)
		}),
	)

	err := panel.Open()
	require.ErrorIs(t, err, hid.ErrNoWorkingInterface)
	// Higher interface number is tried first, so p1 is the last failure.
	assert.Contains(t, err.Error(), "p1")
}

func TestPanel_Open_AlreadyConnected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	panel := newConnectedPanel(t, device)

	assert.ErrorIs(t, panel.Open(), hid.ErrAlreadyConnected)
}

func TestPanel_SendTemperature_Digits(t *testing.T) {
	tests := []struct {
		name    string
		celsius float64
		unit    temperature.Unit
		digits  [3]byte
	}{
		{name: "45C in celsius", celsius: 45.0, unit: temperature.Celsius, digits: [3]byte{0, 4, 5}},
		{name: "45C in fahrenheit", celsius: 45.0, unit: temperature.Fahrenheit, digits: [3]byte{1, 1, 3}},
		{name: "boiling point in fahrenheit", celsius: 100.0, unit: temperature.Fahrenheit, digits: [3]byte{2, 1, 2}},
		{name: "above cap clamps to 212", celsius: 250.0, unit: temperature.Celsius, digits: [3]byte{2, 1, 2}},
		{name: "below zero clamps to 0", celsius: -12.5, unit: temperature.Celsius, digits: [3]byte{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			device := mocks.NewMockDevice(ctrl)
			panel := newConnectedPanel(t, device)

			var written []byte
			device.EXPECT().Write(gomock.Any()).DoAndReturn(func(data []byte) (int, error) {
				written = append([]byte(nil), data...)
				return len(data), nil
			})

			require.NoError(t, panel.SendTemperature(tt.celsius, tt.unit))
			require.Len(t, written, hid.ReportLength)
			assert.Equal(t, tt.digits[0], written[3])
			assert.Equal(t, tt.digits[1], written[4])
			assert.Equal(t, tt.digits[2], written[5])
		})
	}
}

func TestPanel_SendTemperature_NotConnected(t *testing.T) {
	panel := hid.NewPanel()
	assert.ErrorIs(t, panel.SendTemperature(45.0, temperature.Celsius), hid.ErrNotConnected)
}

func TestPanel_SendTemperature_WriteError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	panel := newConnectedPanel(t, device)

	device.EXPECT().Write(gomock.Any()).Return(0, errors.New("device gone"))

	err := panel.SendTemperature(45.0, temperature.Celsius)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "device gone")
}

func TestPanel_SendTemperature_ZeroBytesWritten(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	panel := newConnectedPanel(t, device)

	device.EXPECT().Write(gomock.Any()).Return(0, nil)

	err := panel.SendTemperature(45.0, temperature.Celsius)
	assert.Error(t, err)
}

func TestPanel_Keepalive_WritesValueZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	panel := newConnectedPanel(t, device)

	device.EXPECT().Write(hid.BuildDisplayReport(0)).Return(hid.ReportLength, nil)
	assert.NoError(t, panel.Keepalive())
}

func TestPanel_Blank_WritesBlankReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	panel := newConnectedPanel(t, device)

	device.EXPECT().Write(hid.BuildBlankReport()).Return(hid.ReportLength, nil)
	assert.NoError(t, panel.Blank())
}

func TestPanel_Blank_NotConnected(t *testing.T) {
	panel := hid.NewPanel()
	assert.ErrorIs(t, panel.Blank(), hid.ErrNotConnected)
}

func TestPanel_Close_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	panel := newConnectedPanel(t, device)

	device.EXPECT().Close().Return(nil).Times(1)

	assert.NoError(t, panel.Close())
	assert.NoError(t, panel.Close())
	assert.False(t, panel.Connected())
}

func TestPanel_ReopenAfterClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	device := mocks.NewMockDevice(ctrl)
	panel := newConnectedPanel(t, device)

	device.EXPECT().Close().Return(nil)
	require.NoError(t, panel.Close())

	device.EXPECT().Write(hid.BuildDisplayReport(0)).Return(hid.ReportLength, nil)
	require.NoError(t, panel.Open())
	assert.True(t, panel.Connected())
}
