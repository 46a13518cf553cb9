package models

import "time"

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Supported report formats.
const (
	ReportFormatYAML = "yaml"
	ReportFormatJSON = "json"
)

// DatabaseConfig holds the connection settings of the observation database.
type DatabaseConfig struct {
	Driver   string        `yaml:"driver" mapstructure:"driver"`
	Host     string        `yaml:"host" mapstructure:"host"`
	Port     int           `yaml:"port" mapstructure:"port"`
	Name     string        `yaml:"name" mapstructure:"name"`
	User     string        `yaml:"user" mapstructure:"user"`
	Password string        `yaml:"password,omitempty" mapstructure:"password"`
	MyCNF    string        `yaml:"my_cnf,omitempty" mapstructure:"my_cnf"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TestSignalConfig describes where the calibration signal is expected.
type TestSignalConfig struct {
	FrequencyMHz float64 `yaml:"frequency_mhz" mapstructure:"frequency_mhz"`
	ToleranceMHz float64 `yaml:"tolerance_mhz" mapstructure:"tolerance_mhz"`
	Reason       string  `yaml:"reason" mapstructure:"reason"`
}

// Window returns the open frequency interval the signal must fall into.
func (c TestSignalConfig) Window() (low, high float64) {
	return c.FrequencyMHz - c.ToleranceMHz, c.FrequencyMHz + c.ToleranceMHz
}

// ReportConfig controls the optional report file written after a run.
type ReportConfig struct {
	Path   string `yaml:"path,omitempty" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig controls pushing run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url,omitempty" mapstructure:"pushgateway_url"`
	Job            string `yaml:"job" mapstructure:"job"`
}

// NotificationConfig controls posting run results to Slack.
type NotificationConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url,omitempty" mapstructure:"slack_webhook_url"`
	// Policy is "failure" (only runs with errors) or "always".
	Policy string `yaml:"policy" mapstructure:"policy"`
}

// HistoryConfig controls the run history file and the alert thresholds
// evaluated over it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"`
	// FailingRuns is the number of consecutive failed runs that raises an alert.
	FailingRuns int `yaml:"failing_runs" mapstructure:"failing_runs"`
	// MissingRuns is the number of consecutive runs a node may miss the test
	// signal before it raises an alert.
	MissingRuns int `yaml:"missing_runs" mapstructure:"missing_runs"`
	// StaleAfter raises an alert when the latest run is older than this.
	StaleAfter time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
}

// Config is the complete configuration of a verification run.
type Config struct {
	Database      DatabaseConfig     `yaml:"database" mapstructure:"database"`
	Roster        []string           `yaml:"roster" mapstructure:"roster"`
	TestSignal    TestSignalConfig   `yaml:"test_signal" mapstructure:"test_signal"`
	LogLevel      string             `yaml:"log_level" mapstructure:"log_level"`
	Report        ReportConfig       `yaml:"report" mapstructure:"report"`
	Metrics       MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	History       HistoryConfig      `yaml:"history" mapstructure:"history"`
}

// DefaultRoster returns the dx nodes expected to take part in a test run.
func DefaultRoster() []string {
	return []string{
		"dx1000", "dx1001", "dx1002", "dx1003", "dx1004", "dx1005", "dx1006", "dx1007",
		"dx2000", "dx2001", "dx2002", "dx2003", "dx2004", "dx2005", "dx2006", "dx2007",
	}
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  DriverMySQL,
			Host:    "localhost",
			Port:    3306,
			Name:    "sonata_autotest",
			User:    "sonata",
			Timeout: 10 * time.Second,
		},
		Roster: DefaultRoster(),
		TestSignal: TestSignalConfig{
			FrequencyMHz: 1420.8001,
			ToleranceMHz: 0.000050,
			Reason:       "Confrm",
		},
		LogLevel: "warn",
		Report: ReportConfig{
			Format: ReportFormatYAML,
		},
		Metrics: MetricsConfig{
			Job: "sonata_verify",
		},
		Notifications: NotificationConfig{
			Policy: "failure",
		},
		History: HistoryConfig{
			FailingRuns: 3,
			MissingRuns: 3,
			StaleAfter:  7 * 24 * time.Hour,
		},
	}
}
