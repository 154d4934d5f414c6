// Package service generates and installs the systemd unit that runs the
// display loop in the background.
package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"

	"github.com/moyunkz/ocypus-lcd/internal/temperature"
)

// DefaultServiceName is the unit file basename used when none is given.
const DefaultServiceName = "ocypus-lcd"

// unitDir is where systemd system units are installed.
const unitDir = "/etc/systemd/system"

const unitTemplate = `[Unit]
Description=Ocypus LCD Temperature Display
After=multi-user.target

[Service]
Type=simple
User=root
ExecStart={{.ExecPath}} on -u {{.Unit}} -s "{{.Sensor}}" -r {{.Rate}}
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`

var tmpl = template.Must(template.New("unit").Parse(unitTemplate))

// Options describe the `on` invocation the generated unit runs.
type Options struct {
	Unit   temperature.Unit
	Sensor string
	Rate   float64 // seconds
	Name   string
}

// normalize fills defaults.
func (o Options) normalize() Options {
	if o.Name == "" {
		o.Name = DefaultServiceName
	}
	return o
}

// UnitFileContent renders the systemd unit text for the given binary path
// and options.
func UnitFileContent(execPath string, opts Options) (string, error) {
	opts = opts.normalize()

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		ExecPath string
		Unit     temperature.Unit
		Sensor   string
		Rate     float64
	}{
		ExecPath: execPath,
		Unit:     opts.Unit,
		Sensor:   opts.Sensor,
		Rate:     opts.Rate,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render unit template: %w", err)
	}
	return buf.String(), nil
}

// Install writes the unit file under /etc/systemd/system. Writing requires
// root; a permission failure is surfaced without side effects. When
// enableNow is set, the unit is also enabled and started through the
// systemd manager on the system bus.
func Install(opts Options, enableNow bool) (string, error) {
	opts = opts.normalize()

	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}

	content, err := UnitFileContent(execPath, opts)
	if err != nil {
		return "", err
	}

	unitPath := filepath.Join(unitDir, opts.Name+".service")
	if err := os.WriteFile(unitPath, []byte(content), 0o644); err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("permission denied writing %s (run with sudo): %w", unitPath, err)
		}
		return "", fmt.Errorf("failed to write unit file: %w", err)
	}

	log.Info().Str("path", unitPath).Msg("Systemd unit installed")

	if enableNow {
		if err := enableAndStart(opts.Name + ".service"); err != nil {
			return unitPath, err
		}
		log.Info().Str("unit", opts.Name+".service").Msg("Service enabled and started")
	}

	return unitPath, nil
}

// enableAndStart reloads the systemd manager, enables the unit and starts it
// via org.freedesktop.systemd1 on the system bus.
func enableAndStart(unit string) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close system bus connection")
		}
	}()

	systemd := conn.Object("org.freedesktop.systemd1", "/org/freedesktop/systemd1")

	if call := systemd.Call("org.freedesktop.systemd1.Manager.Reload", 0); call.Err != nil {
		return fmt.Errorf("failed to reload systemd: %w", call.Err)
	}
	if call := systemd.Call("org.freedesktop.systemd1.Manager.EnableUnitFiles", 0, []string{unit}, false, true); call.Err != nil {
		return fmt.Errorf("failed to enable %s: %w", unit, call.Err)
	}
	if call := systemd.Call("org.freedesktop.systemd1.Manager.StartUnit", 0, unit, "replace"); call.Err != nil {
		return fmt.Errorf("failed to start %s: %w", unit, call.Err)
	}

	return nil
}
