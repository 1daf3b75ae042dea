// Package config collects the settings of a verification run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"sigs.k8s.io/yaml"
)

// EnvPrefix is the prefix of the environment variables read by FromEnv.
const EnvPrefix = "VAIVERIF_"

// Config holds the settings of a run.
type Config struct {
	Seed           uint64 `json:"seed"`
	Policy         string `json:"policy"`
	ItemsPerSeq    int    `json:"itemsPerSeq"`
	Verbosity      string `json:"verbosity"`
	ClockPeriodNS  int    `json:"clockPeriodNS"`
	ResetNS        int    `json:"resetNS"`
	NumStage       int    `json:"numStage"`
	ExtraLatency   int    `json:"extraLatency"`
	StallWarning   int    `json:"stallWarning"`
	MaxCycles      int    `json:"maxCycles"`
	DisableCovErrs bool   `json:"disableCoverageErrors"`
	LiveCheck      bool   `json:"liveCheck"`
	ResultsDir     string `json:"resultsDir"`
	Record         bool   `json:"record"`
	Monitor        bool   `json:"monitor"`
	MonitorPort    int    `json:"monitorPort"`
	OpenBrowser    bool   `json:"openBrowser"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Seed:          1,
		Policy:        "serial",
		ItemsPerSeq:   20,
		Verbosity:     "INFO",
		ClockPeriodNS: 10,
		ResetNS:       100,
		NumStage:      10,
		ExtraLatency:  4,
		StallWarning:  1000,
		MaxCycles:     1000000,
		ResultsDir:    "results",
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	c := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}

	if err := yaml.UnmarshalStrict(raw, &c); err != nil {
		return c, fmt.Errorf("parsing %s: %w", path, err)
	}

	return c, c.Validate()
}

// Save writes the settings as YAML.
func (c Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, raw, 0o644)
}

// Validate checks that the settings can drive a run.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Policy) {
	case "serial", "parallel":
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q", c.Policy))
	}

	if c.ItemsPerSeq < 0 {
		errs = append(errs, fmt.Errorf("negative item count %d", c.ItemsPerSeq))
	}

	if c.ClockPeriodNS <= 0 {
		errs = append(errs,
			fmt.Errorf("clock period must be positive, got %d", c.ClockPeriodNS))
	}

	if c.ResetNS < 0 {
		errs = append(errs, fmt.Errorf("negative reset duration %d", c.ResetNS))
	}

	if c.NumStage < 1 {
		errs = append(errs, fmt.Errorf("the core needs at least one stage"))
	}

	if c.ExtraLatency < 0 {
		errs = append(errs, fmt.Errorf("negative extra latency %d", c.ExtraLatency))
	}

	if c.MaxCycles < 0 {
		errs = append(errs, fmt.Errorf("negative cycle limit %d", c.MaxCycles))
	}

	return errors.Join(errs...)
}

// ApplySettings overrides the fields that have a value in s. Values that do
// not parse are reported.
func (c *Config) ApplySettings(s Settings) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, err := s.Lookup(key); err == nil {
			*dst = v
		}
	}

	num := func(key string, dst *int) {
		if v, err := s.Lookup(key); err == nil {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	flag := func(key string, dst *bool) {
		*dst = s.Bool(key, *dst)
	}

	if v, err := s.Lookup("SEED"); err == nil {
		seed, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SEED: %w", err))
		} else {
			c.Seed = seed
		}
	}

	str("POLICY", &c.Policy)
	num("ITEMS", &c.ItemsPerSeq)
	str("VERBOSITY", &c.Verbosity)
	num("CLOCK_PERIOD_NS", &c.ClockPeriodNS)
	num("RESET_NS", &c.ResetNS)
	num("NUM_STAGE", &c.NumStage)
	num("EXTRA_LATENCY", &c.ExtraLatency)
	num("STALL_WARNING", &c.StallWarning)
	num("MAX_CYCLES", &c.MaxCycles)
	flag("DISABLE_COVERAGE_ERRORS", &c.DisableCovErrs)
	flag("LIVE_CHECK", &c.LiveCheck)
	str("RESULTS_DIR", &c.ResultsDir)
	flag("RECORD", &c.Record)
	flag("MONITOR", &c.Monitor)
	num("MONITOR_PORT", &c.MonitorPort)
	flag("OPEN_BROWSER", &c.OpenBrowser)

	return errors.Join(errs...)
}

// ErrNotFound is returned when a setting has no value.
var ErrNotFound = errors.New("setting not found")

// Settings are optional switches looked up by key.
type Settings map[string]string

// FromEnv collects the variables that start with the prefix, with the
// prefix removed. Variables from the .env files are loaded first and never
// override the real environment. Missing .env files are ignored, but a .env
// file that cannot be parsed is an error.
func FromEnv(prefix string, dotenvFiles ...string) (Settings, error) {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	s := Settings{}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}

		s[strings.TrimPrefix(k, prefix)] = v
	}

	return s, nil
}

// ReadDotenv parses a .env file into settings without touching the
// environment.
func ReadDotenv(path string) (Settings, error) {
	m, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}

	return Settings(m), nil
}

// Lookup returns the value of a setting.
func (s Settings) Lookup(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return v, nil
}

// Bool returns the boolean value of a setting, or def when the setting is
// missing or is not a boolean.
func (s Settings) Bool(key string, def bool) bool {
	v, err := s.Lookup(key)
	if err != nil {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}
