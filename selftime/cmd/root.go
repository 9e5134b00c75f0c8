// Package cmd provides the command-line interface for the selftime tool.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memtrace/analysis"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "selftime <input_folded_file> <output_folded_file>",
	Short: "Converts inclusive time profiles to exclusive time",
	Long: `Selftime reads a folded-stack profile whose durations are ` +
		`inclusive (each call path carries its descendants' time) and ` +
		`writes the same profile with exclusive durations, so that ` +
		`flamegraph tooling does not double count nested time.`,
	Args:         cobra.ExactArgs(2),
	RunE:         run,
	SilenceUsage: true,
}

func run(_ *cobra.Command, args []string) error {
	input, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("cannot open input file: %w", err)
	}
	defer input.Close()

	output, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}

	converter := analysis.MakeExclusiveTimeConverterBuilder().
		WithInput(input).
		WithOutput(output).
		Build()

	summary, err := converter.Run()
	if err != nil {
		output.Close()
		return fmt.Errorf("failed to process profile: %w", err)
	}

	err = output.Close()
	if err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Printf("Successfully processed %d lines\n", summary.LinesProcessed)
	fmt.Printf("Found %d stacks\n", summary.StackCount)
	fmt.Printf("Total exclusive time: %d µs\n", summary.TotalExclusive)

	if paths := summary.Stats.Paths(); len(paths) > 0 {
		fmt.Printf("Hottest stack: %s (%d µs)\n",
			paths[0].Path, paths[0].Total)
	}

	return nil
}

// Execute runs the root command and exits non-zero on any failure.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
