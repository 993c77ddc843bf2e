package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "extproxy",
	Short: "Generate and inspect extension proxy class files",
	Long: `extproxy generates JVM proxy classes that re-publish a service
delegate under a chosen set of contract interfaces.

The delegate hierarchy and the contracts are described in a YAML
descriptor file; the generated class implements the contracts with their
resolved generic parameterization and forwards every call to the current
delegate obtained from a java.util.function.Supplier.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
}
