package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/axellelanca/scanlead/internal/config"
	"github.com/spf13/cobra"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (run-server, create, stats, migrate) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "scanlead",
	Short: "QR code scan tracking, lead attribution and message delivery",
	Long: `scanlead redirects QR code scans to their landing pages, attributes the
leads captured there to the scan that brought them in, and tracks the delivery
of bulk messages sent to those leads through an external gateway.`,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Configuration is loaded before any command executes.
	// Subcommands register themselves via their own init() functions.
	cobra.OnInitialize(initConfig)
}

// initConfig loads the application configuration into Cfg.
// A missing config file is not an error, defaults and env apply; a broken one is fatal.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
}
