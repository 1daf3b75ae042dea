package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/sarchlab/vaiverif/datarecording"
	"github.com/sarchlab/vaiverif/env"
	"github.com/sarchlab/vaiverif/monitoring"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the random encrypt and decrypt sequences.",
	Long: `run sends one random encrypt sequence and one random decrypt ` +
		`sequence to the core, one after the other (serial) or interleaved ` +
		`(parallel). The command fails if any result is wrong.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		b := env.MakeBuilder().
			WithConfig(cfg).
			WithLogOutput(cmd.OutOrStdout())

		if cfg.Record {
			if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
				return err
			}

			path := filepath.Join(cfg.ResultsDir, "tb_aes_"+xid.New().String())
			b = b.WithRecorder(datarecording.New(path))

			fmt.Fprintf(cmd.ErrOrStderr(), "recording to %s.sqlite3\n", path)
		}

		var m *monitoring.Monitor
		if cfg.Monitor {
			m = monitoring.NewMonitor().
				WithPortNumber(cfg.MonitorPort).
				WithBrowser(cfg.OpenBrowser)
			b = b.WithMonitor(m)
		}

		e := b.Build("Env")
		if m != nil {
			m.StartServer()
		}

		return report(cmd, e)
	},
}

func report(cmd *cobra.Command, e *env.Env) error {
	res, err := e.Run()

	fmt.Fprintf(cmd.ErrOrStderr(),
		"run %s: %d checks, %d failed, %d faults, coverage %.2f%%\n",
		res.RunID, res.Stats.Checks, res.Stats.Mismatches, res.Stats.Faults,
		res.Coverage)

	return err
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("policy", "", "serial or parallel")
	f.Int("items", 0, "number of items per sequence")
	f.Int("stall-warning", 0, "cycles of valid without accept before a "+
		"warning, 0 to disable")
	f.Int("max-cycles", 0, "stop the run after this many cycles, 0 for no "+
		"limit")
	f.Bool("disable-coverage-errors", false, "do not warn about "+
		"incomplete coverage")
	f.Bool("live-check", false, "check results as they arrive")
	f.Bool("record", false, "record the run into an SQLite database")
	f.Bool("monitor", false, "serve the monitoring web page")
	f.Int("monitor-port", 0, "port of the monitoring server, 0 for any")
	f.Bool("open-browser", false, "open the monitoring page in a browser")
}
