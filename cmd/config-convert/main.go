package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fieldwx/stationd/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <station.yaml> -sqlite <station.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration...\n")
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	snap, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	printConfigSummary(snap)

	if *dryRun {
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		os.Remove(*sqliteFile)
	}

	fmt.Printf("Creating SQLite database...\n")
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	if err := sqliteProvider.SaveConfig(snap); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configuration to SQLite: %v\n", err)
		os.Exit(1)
	}

	// Read back to verify the round trip
	check, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error verifying SQLite configuration: %v\n", err)
		os.Exit(1)
	}
	if check.Station.DeviceName != snap.Station.DeviceName {
		fmt.Fprintf(os.Stderr, "Error: verification mismatch, device name %q != %q\n",
			check.Station.DeviceName, snap.Station.DeviceName)
		os.Exit(1)
	}

	fmt.Printf("Conversion complete: %s\n", *sqliteFile)
	fmt.Printf("Run stationd with: -config %s -config-backend sqlite\n", *sqliteFile)
}

func printConfigSummary(s *config.Snapshot) {
	fmt.Printf("  Device: %s\n", s.Station.DeviceName)
	fmt.Printf("  Sensor: %s on %s\n", s.Station.SensorKind, s.Station.SerialDevice)
	fmt.Printf("  Sleep: %d min, CPU %d MHz, %.2f mm/tip\n",
		s.Station.SleepMinutes, s.Station.CPUFreqMHz, s.Station.RainMmPerTip)
	switch {
	case s.Meshtastic != nil:
		fmt.Printf("  Transport: meshtastic node %s\n", s.Meshtastic.Host)
	case s.MQTT != nil:
		fmt.Printf("  Transport: mqtt broker %s, topic %s\n", s.MQTT.Broker, s.MQTT.Topic)
	default:
		fmt.Printf("  Transport: none configured\n")
	}
}
