package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaiverif/coverage"
	"github.com/sarchlab/vaiverif/env"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage [database]",
	Short: "Print a stored coverage database.",
	Long: `coverage prints the coverage database written by the last run ` +
		`in the results directory, or the given database file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path = filepath.Join(cfg.ResultsDir, env.CoverageDBFile)
		}

		db, err := coverage.ReadDB(path)
		if err != nil {
			return err
		}

		return coverage.FormatReport(cmd.OutOrStdout(), db)
	},
}

func init() {
	rootCmd.AddCommand(coverageCmd)
}
