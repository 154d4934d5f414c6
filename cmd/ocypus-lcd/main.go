// Package main provides the entry point for the Ocypus LCD temperature display driver.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/moyunkz/ocypus-lcd/internal/display"
	"github.com/moyunkz/ocypus-lcd/internal/hid"
	"github.com/moyunkz/ocypus-lcd/internal/sensors"
	"github.com/moyunkz/ocypus-lcd/internal/service"
	"github.com/moyunkz/ocypus-lcd/internal/temperature"
	"github.com/moyunkz/ocypus-lcd/internal/udev"
)

var (
	verbose    bool
	unitFlag   string
	sensorFlag string
	rateFlag   float64
	nameFlag   string
	enableNow  bool

	rootCmd = &cobra.Command{
		Use:   "ocypus-lcd",
		Short: "Ocypus Iota L36 LCD temperature display driver",
		Long: `ocypus-lcd drives the numeric LCD panel on an Ocypus Iota L36 liquid
cooler over USB HID, streaming a live CPU temperature reading as three
decimal digits.

It auto-detects a likely working HID interface (preferring vendor usage
pages and higher interface numbers), keeps the panel alive with periodic
updates, and can install itself as a systemd service.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all found Ocypus cooler interfaces",
		RunE:  runList,
	}

	onCmd = &cobra.Command{
		Use:   "on",
		Short: "Turn on the display and stream temperature until interrupted",
		RunE:  runOn,
	}

	offCmd = &cobra.Command{
		Use:   "off",
		Short: "Turn off (blank) the display",
		RunE:  runOff,
	}

	sensorsCmd = &cobra.Command{
		Use:   "sensors",
		Short: "List available temperature sensors and the selected one",
		RunE:  runSensors,
	}

	installCmd = &cobra.Command{
		Use:   "install-service",
		Short: "Install a systemd unit for background operation",
		RunE:  runInstall,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	for _, cmd := range []*cobra.Command{onCmd, installCmd} {
		cmd.Flags().StringVarP(&unitFlag, "unit", "u", string(temperature.Celsius),
			"Temperature unit: c=Celsius, f=Fahrenheit")
		cmd.Flags().StringVarP(&sensorFlag, "sensor", "s", display.DefaultSensorSubstring,
			"Substring of the sensor name to display")
		cmd.Flags().Float64VarP(&rateFlag, "rate", "r", display.DefaultRefreshInterval.Seconds(),
			"Update interval in seconds")
	}
	sensorsCmd.Flags().StringVarP(&sensorFlag, "sensor", "s", display.DefaultSensorSubstring,
		"Substring of the sensor name to highlight")

	installCmd.Flags().StringVar(&nameFlag, "name", service.DefaultServiceName,
		"Name for the systemd unit file")
	installCmd.Flags().BoolVar(&enableNow, "now", false,
		"Enable and start the service via systemd after installing")

	rootCmd.AddCommand(listCmd, onCmd, offCmd, sensorsCmd, installCmd)
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	candidates, err := hid.Candidates(hid.EnumerateDevices, hid.OcypusVendorID, hid.IotaL36ProductID)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		cmd.Println("No Ocypus cooler devices found.")
		return nil
	}

	cmd.Printf("Found %d Ocypus cooler interface(s):\n", len(candidates))
	for i, d := range candidates {
		cmd.Printf("  %d. Interface %d (path %s) usagePage=0x%04x usage=0x%04x\n",
			i+1, d.Interface, d.Path, d.UsagePage, d.Usage)
	}
	return nil
}

func runOn(cmd *cobra.Command, args []string) error {
	unit, err := temperature.ParseUnit(unitFlag)
	if err != nil {
		return err
	}

	panel := hid.NewPanel()
	if err := panel.Open(); err != nil {
		return err
	}
	defer closePanel(panel)

	loop := display.NewLoop(panel, sensors.NewSystemProvider(), display.Config{
		SensorSubstring: sensorFlag,
		Unit:            unit,
		RefreshInterval: rateDuration(rateFlag),
	})

	monitor := udev.NewMonitor(func(udev.Event) {
		loop.RequestReconnect()
	})
	if err := monitor.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start udev monitor (hot-plug detection disabled)")
	} else {
		defer func() {
			if err := monitor.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop udev monitor")
			}
		}()
	}

	return loop.Run(cmd.Context())
}

func runOff(cmd *cobra.Command, args []string) error {
	panel := hid.NewPanel()
	if err := panel.Open(); err != nil {
		return err
	}
	defer closePanel(panel)

	if err := panel.Blank(); err != nil {
		return err
	}
	cmd.Println("Display turned off.")
	return nil
}

func runSensors(cmd *cobra.Command, args []string) error {
	readings, err := sensors.NewSystemProvider().Readings(cmd.Context())
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		cmd.Println("No temperature sensors found.")
		return nil
	}

	selected, found := sensors.FindBySubstring(readings, sensorFlag)

	cmd.Println("Available temperature sensors:")
	for _, r := range readings {
		marker := ""
		if found && r.Sensor == selected.Sensor {
			marker = "  (selected)"
		}
		cmd.Printf("  %s: %.1f%s%s\n", r.Sensor, r.Celsius, temperature.Celsius.Symbol(), marker)
	}
	if !found {
		cmd.Printf("No sensor matches %q.\n", sensorFlag)
	}
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	unit, err := temperature.ParseUnit(unitFlag)
	if err != nil {
		return err
	}

	unitPath, err := service.Install(service.Options{
		Unit:   unit,
		Sensor: sensorFlag,
		Rate:   rateFlag,
		Name:   nameFlag,
	}, enableNow)
	if err != nil {
		return err
	}

	cmd.Printf("Systemd service created: %s\n", unitPath)
	if !enableNow {
		name := strings.TrimSuffix(nameFlag, ".service")
		cmd.Println("\nTo enable and start the service:")
		cmd.Println("  sudo systemctl daemon-reload")
		cmd.Printf("  sudo systemctl enable --now %s.service\n", name)
	}
	return nil
}

// rateDuration converts the --rate flag (seconds) to a duration.
// Non-positive values fall back to the loop's default.
func rateDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func closePanel(panel *hid.Panel) {
	if err := panel.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close panel")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
