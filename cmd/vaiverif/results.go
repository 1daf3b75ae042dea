package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaiverif/datarecording"
	"github.com/sarchlab/vaiverif/env"
)

var resultsCmd = &cobra.Command{
	Use:   "results database",
	Short: "Summarize a recorded run.",
	Long: `results prints every run stored in a database written with ` +
		`--record, followed by the checks of the run that did not pass.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		return printResults(cmd.Context(), cmd, reader)
	},
}

func printResults(
	ctx context.Context,
	cmd *cobra.Command,
	reader datarecording.DataReader,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := env.ReadRuns(ctx, reader)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, run := range runs {
		verdict := "PASSED"
		if !run.Passed {
			verdict = "FAILED"
		}

		fmt.Fprintf(out, "run %s %s: seed %d, %s, %d items, %d checks, "+
			"%d failed, %d faults, coverage %.2f%%\n",
			run.RunID, verdict, run.Seed, run.Policy, run.Items,
			run.Checks, run.Mismatches, run.Faults, run.Coverage)

		failed, err := env.ReadFailedChecks(ctx, reader, run.RunID)
		if err != nil {
			return err
		}

		for _, c := range failed {
			fmt.Fprintf(out, "  #%d %s %s: %s 0x%s with key 0x%s, "+
				"got 0x%s, expected 0x%s\n",
				c.Seq, c.Outcome, formatNS(c.SimTime), c.Mode, c.DataHex,
				c.KeyHex, c.Actual, c.Expected)
		}
	}

	return nil
}

func formatNS(t float64) string {
	return fmt.Sprintf("%.2fns", t*1e9)
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}
