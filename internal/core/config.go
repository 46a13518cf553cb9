// Package core contains the configuration layer of sonata-verify: loading
// the YAML configuration file, environment overrides and command-line flags
// into a single validated models.Config.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// ConfigFileName is the base name of the configuration file searched for
// when no explicit path is given.
const ConfigFileName = ".sonataverify"

// EnvPrefix prefixes every environment override, e.g.
// SONATA_VERIFY_DATABASE_PASSWORD.
const EnvPrefix = "SONATA_VERIFY"

// ConfigurationManager defines the interface for loading and validating the
// verification configuration.
type ConfigurationManager interface {
	// BindFlags lets command-line flags override file and env values.
	BindFlags(flags *pflag.FlagSet, keys map[string]string) error
	Load() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
	// ConfigFileUsed returns the path of the file read by Load, if any.
	ConfigFileUsed() string
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	v           *viper.Viper
	configFile  string
	searchPaths []string
}

// NewConfigurationManager creates a ConfigurationManager. When configFile is
// set it must exist; otherwise .sonataverify.yaml is looked up in
// searchPaths and defaults are used if it is absent.
func NewConfigurationManager(configFile string, searchPaths ...string) ConfigurationManager {
	return &viperConfigManager{
		v:           viper.New(),
		configFile:  configFile,
		searchPaths: searchPaths,
	}
}

// BindFlags binds each flag name in keys to its configuration key. Only
// flags explicitly set on the command line take precedence.
func (cm *viperConfigManager) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for flagName, key := range keys {
		f := flags.Lookup(flagName)
		if f == nil {
			return fmt.Errorf("binding flag %q: no such flag", flagName)
		}
		if err := cm.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %q: %w", flagName, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg models.Config) {
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.name", cfg.Database.Name)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.my_cnf", cfg.Database.MyCNF)
	v.SetDefault("database.timeout", cfg.Database.Timeout)
	v.SetDefault("roster", cfg.Roster)
	v.SetDefault("test_signal.frequency_mhz", cfg.TestSignal.FrequencyMHz)
	v.SetDefault("test_signal.tolerance_mhz", cfg.TestSignal.ToleranceMHz)
	v.SetDefault("test_signal.reason", cfg.TestSignal.Reason)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("report.path", cfg.Report.Path)
	v.SetDefault("report.format", cfg.Report.Format)
	v.SetDefault("metrics.pushgateway_url", cfg.Metrics.PushgatewayURL)
	v.SetDefault("metrics.job", cfg.Metrics.Job)
	v.SetDefault("notifications.slack_webhook_url", cfg.Notifications.SlackWebhookURL)
	v.SetDefault("notifications.policy", cfg.Notifications.Policy)
	v.SetDefault("history.path", cfg.History.Path)
	v.SetDefault("history.failing_runs", cfg.History.FailingRuns)
	v.SetDefault("history.missing_runs", cfg.History.MissingRuns)
	v.SetDefault("history.stale_after", cfg.History.StaleAfter)
}

// Load reads the configuration file, applies environment and flag overrides
// and validates the result.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	v := cm.v
	setDefaults(v, models.DefaultConfig())

	v.SetConfigType("yaml")
	if cm.configFile != "" {
		v.SetConfigFile(cm.configFile)
	} else {
		v.SetConfigName(ConfigFileName)
		for _, p := range cm.searchPaths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cm.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := cm.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the configuration file read by Load.
func (cm *viperConfigManager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// ValidateConfig checks that cfg describes a usable verification run.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}

	switch cfg.Database.Driver {
	case models.DriverMySQL, models.DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q",
			models.DriverMySQL, models.DriverPostgres, cfg.Database.Driver)
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database.name must not be empty")
	}

	if len(cfg.Roster) == 0 {
		return fmt.Errorf("roster must list at least one node")
	}
	seen := make(map[string]bool, len(cfg.Roster))
	for _, n := range cfg.Roster {
		if n == "" {
			return fmt.Errorf("roster contains an empty node name")
		}
		if seen[n] {
			return fmt.Errorf("roster lists %s more than once", n)
		}
		seen[n] = true
	}

	if cfg.TestSignal.ToleranceMHz <= 0 {
		return fmt.Errorf("test_signal.tolerance_mhz must be positive, got %v", cfg.TestSignal.ToleranceMHz)
	}
	if cfg.TestSignal.Reason == "" {
		return fmt.Errorf("test_signal.reason must not be empty")
	}

	switch cfg.Report.Format {
	case models.ReportFormatYAML, models.ReportFormatJSON:
	default:
		return fmt.Errorf("report.format must be %q or %q, got %q",
			models.ReportFormatYAML, models.ReportFormatJSON, cfg.Report.Format)
	}

	switch cfg.Notifications.Policy {
	case "failure", "always":
	default:
		return fmt.Errorf("notifications.policy must be \"failure\" or \"always\", got %q", cfg.Notifications.Policy)
	}

	if cfg.History.FailingRuns < 1 || cfg.History.MissingRuns < 1 {
		return fmt.Errorf("history.failing_runs and history.missing_runs must be at least 1")
	}
	return nil
}

// Redacted returns a copy of cfg that is safe to print.
func Redacted(cfg models.Config) models.Config {
	if cfg.Database.Password != "" {
		cfg.Database.Password = "xxxxx"
	}
	if cfg.Notifications.SlackWebhookURL != "" {
		cfg.Notifications.SlackWebhookURL = "xxxxx"
	}
	cfg.Roster = append([]string(nil), cfg.Roster...)
	return cfg
}
