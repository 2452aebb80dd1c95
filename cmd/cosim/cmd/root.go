// Package cmd provides the command-line interface of the cosimulation
// harness.
package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var envFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cosim",
	Short: "Cosim drives a cycle-stepped accelerator model from the host side.",
	Long: `Cosim drives a cycle-stepped model of the accelerator kernel the way ` +
		`a host drives the device: through the AXI4-Lite control registers ` +
		`and a shared memory bank. Defaults can be set in a .env file with ` +
		`COSIM_MAX_RETRIES, COSIM_BANK_CAPACITY, COSIM_VCD and COSIM_RECORD.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadEnvFile(envFile)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env",
		"File to load default settings from.")
}

// loadEnvFile loads the settings in path into the environment. Variables that
// are already set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
