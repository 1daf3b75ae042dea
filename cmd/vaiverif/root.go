package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vaiverif/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vaiverif",
	Short: "vaiverif verifies an AES core with a valid/accept interface.",
	Long: `vaiverif drives random encrypt and decrypt operations into a ` +
		`model of an AES core, checks every result against AES-128 ECB and ` +
		`measures functional coverage. Settings come from the defaults, an ` +
		`optional YAML file, .env and ` + config.EnvPrefix + `* environment ` +
		`variables, and the flags, in increasing priority.`,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "YAML file with the run settings")
	f.Uint64("seed", 0, "random seed")
	f.String("verbosity", "", "lowest severity to print (DEBUG, INFO, "+
		"WARNING, ERROR, CRITICAL)")
	f.Int("clock-period", 0, "clock period in ns")
	f.Int("reset-ns", 0, "reset duration in ns")
	f.Int("num-stage", 0, "pipeline depth of the core")
	f.Int("extra-latency", 0, "maximum random extra latency of the core in "+
		"cycles")
	f.String("results-dir", "", "directory for reports, coverage "+
		"databases and records")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. The exit handlers run before the program exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadConfig layers the defaults, the YAML file, the environment and the
// flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	f := cmd.Flags()

	if path, _ := f.GetString("config"); path != "" {
		var err error

		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}

	settings, err := config.FromEnv(config.EnvPrefix, ".env")
	if err != nil {
		return cfg, err
	}

	if err := cfg.ApplySettings(settings); err != nil {
		return cfg, err
	}

	str := func(name string, dst *string) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}

	num := func(name string, dst *int) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}

	flag := func(name string, dst *bool) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}

	if f.Changed("seed") {
		cfg.Seed, _ = f.GetUint64("seed")
	}

	str("verbosity", &cfg.Verbosity)
	num("clock-period", &cfg.ClockPeriodNS)
	num("reset-ns", &cfg.ResetNS)
	num("num-stage", &cfg.NumStage)
	num("extra-latency", &cfg.ExtraLatency)
	str("results-dir", &cfg.ResultsDir)
	str("policy", &cfg.Policy)
	num("items", &cfg.ItemsPerSeq)
	num("stall-warning", &cfg.StallWarning)
	num("max-cycles", &cfg.MaxCycles)
	flag("disable-coverage-errors", &cfg.DisableCovErrs)
	flag("live-check", &cfg.LiveCheck)
	flag("record", &cfg.Record)
	flag("monitor", &cfg.Monitor)
	num("monitor-port", &cfg.MonitorPort)
	flag("open-browser", &cfg.OpenBrowser)

	return cfg, cfg.Validate()
}
