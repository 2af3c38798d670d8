// Package config merges config file, TOKENDRIP_ environment variables, and
// command-line flags into typed configuration, flags taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every runtime setting for the distribution commands.
type Config struct {
	CSVPath  string
	Endpoint string
	Network  string
	Seed     string

	ConfirmationDepth   int
	ConfirmationTimeout time.Duration
	CheckpointInterval  int
	TransferDelay       time.Duration
	GasBuffer           string
	MinTransfer         string

	SnapshotDir string
	Report      string

	Resume       bool
	DryRun       bool
	DryRunSample int
	DryRunDelay  time.Duration
	Yes          bool

	LogLevel string
	LogFile  string
}

// Load merges config file, environment, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOKENDRIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "astar")
	v.SetDefault("confirmation-depth", 2)
	v.SetDefault("confirmation-timeout", 5*time.Minute)
	v.SetDefault("checkpoint-interval", 10)
	v.SetDefault("transfer-delay", time.Second)
	v.SetDefault("gas-buffer", "1.0")
	v.SetDefault("min-transfer", "0.0000005")
	v.SetDefault("snapshot-dir", "./data/snapshots")
	v.SetDefault("report", "./data/transactions.csv")
	v.SetDefault("dry-run-sample", 5)
	v.SetDefault("dry-run-delay", time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		CSVPath:             v.GetString("csv"),
		Endpoint:            v.GetString("endpoint"),
		Network:             v.GetString("network"),
		Seed:                v.GetString("seed"),
		ConfirmationDepth:   v.GetInt("confirmation-depth"),
		ConfirmationTimeout: v.GetDuration("confirmation-timeout"),
		CheckpointInterval:  v.GetInt("checkpoint-interval"),
		TransferDelay:       v.GetDuration("transfer-delay"),
		GasBuffer:           v.GetString("gas-buffer"),
		MinTransfer:         v.GetString("min-transfer"),
		SnapshotDir:         v.GetString("snapshot-dir"),
		Report:              v.GetString("report"),
		Resume:              v.GetBool("resume"),
		DryRun:              v.GetBool("dry-run"),
		DryRunSample:        v.GetInt("dry-run-sample"),
		DryRunDelay:         v.GetDuration("dry-run-delay"),
		Yes:                 v.GetBool("yes"),
		LogLevel:            v.GetString("log-level"),
		LogFile:             v.GetString("log-file"),
	}

	return cfg, nil
}
