// Package config loads toygrep configuration from YAML, the environment and
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Run       RunConfig       `mapstructure:"run"`
	Transport TransportConfig `mapstructure:"transport"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths. Report lines always go to
	// stdout, so logs default to stderr.
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// RunConfig describes the job the master runs.
type RunConfig struct {
	Workers int    `mapstructure:"workers"`
	Op      string `mapstructure:"op"`
	Pattern string `mapstructure:"pattern"`
	// Input is the corpus file; "-" reads stdin
	Input string `mapstructure:"input"`
	// Limit caps matches per task, 0 means unbounded
	Limit int `mapstructure:"limit"`
	// Overlap extends slices so matches on a boundary are found
	Overlap      bool          `mapstructure:"overlap"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StatusAddr   string        `mapstructure:"status_addr"`
	JournalPath  string        `mapstructure:"journal_path"`
}

type TransportConfig struct {
	// Listen is the master's bind address in TCP mode
	Listen string `mapstructure:"listen"`
	// MasterAddr is where TCP workers dial
	MasterAddr  string        `mapstructure:"master_addr"`
	Codec       string        `mapstructure:"codec"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

var (
	validOps    = []string{"search", "wordcount"}
	validCodecs = []string{"cbor", "json"}
)

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Run: RunConfig{
			Workers:      4,
			Op:           "search",
			Input:        "-",
			PollInterval: time.Millisecond,
		},
		Transport: TransportConfig{
			Listen:      ":7878",
			MasterAddr:  "localhost:7878",
			Codec:       "cbor",
			DialTimeout: 5 * time.Second,
		},
	}
}

// Load reads configuration from path if non-empty, otherwise from
// toygrep.yaml in the usual locations. Environment variables use the prefix
// TOYGREP with `.` and `-` replaced by `_`, e.g. TOYGREP_RUN_WORKERS=8.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TOYGREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// every key needs a default or AutomaticEnv will not see it
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("run.workers", cfg.Run.Workers)
	v.SetDefault("run.op", cfg.Run.Op)
	v.SetDefault("run.pattern", cfg.Run.Pattern)
	v.SetDefault("run.input", cfg.Run.Input)
	v.SetDefault("run.limit", cfg.Run.Limit)
	v.SetDefault("run.overlap", cfg.Run.Overlap)
	v.SetDefault("run.poll_interval", cfg.Run.PollInterval)
	v.SetDefault("run.status_addr", cfg.Run.StatusAddr)
	v.SetDefault("run.journal_path", cfg.Run.JournalPath)
	v.SetDefault("transport.listen", cfg.Transport.Listen)
	v.SetDefault("transport.master_addr", cfg.Transport.MasterAddr)
	v.SetDefault("transport.codec", cfg.Transport.Codec)
	v.SetDefault("transport.dial_timeout", cfg.Transport.DialTimeout)

	if path == "" {
		path = os.Getenv("TOYGREP_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("toygrep")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".toygrep"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate normalizes cfg and rejects values no run could use. It is called
// by Load and again after command-line flags are applied.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	c.Run.Op = strings.ToLower(strings.TrimSpace(c.Run.Op))
	if !slices.Contains(validOps, c.Run.Op) {
		return fmt.Errorf("invalid run.op: %q (want one of %s)", c.Run.Op, strings.Join(validOps, ", "))
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("%w: run.workers %d", toygrep.ErrNoWorkers, c.Run.Workers)
	}
	if c.Run.Limit < 0 {
		return fmt.Errorf("invalid run.limit: %d", c.Run.Limit)
	}
	if c.Run.PollInterval <= 0 {
		return fmt.Errorf("invalid run.poll_interval: %s", c.Run.PollInterval)
	}

	c.Transport.Codec = strings.ToLower(strings.TrimSpace(c.Transport.Codec))
	if !slices.Contains(validCodecs, c.Transport.Codec) {
		return fmt.Errorf("invalid transport.codec: %q (want one of %s)", c.Transport.Codec, strings.Join(validCodecs, ", "))
	}

	return nil
}
