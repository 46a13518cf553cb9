package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensonata/sonata-verify/internal"
	"github.com/opensonata/sonata-verify/internal/core"
	"github.com/opensonata/sonata-verify/pkg/models"
)

// openStore opens the observation store for a run. Tests replace it.
var openStore internal.StoreOpener = internal.OpenStore

var configFile string

// flagKeys maps persistent flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":     "log_level",
	"driver":        "database.driver",
	"host":          "database.host",
	"port":          "database.port",
	"database":      "database.name",
	"user":          "database.user",
	"password":      "database.password",
	"my-cnf":        "database.my_cnf",
	"roster":        "roster",
	"report":        "report.path",
	"report-format": "report.format",
	"pushgateway":   "metrics.pushgateway_url",
	"slack-webhook": "notifications.slack_webhook_url",
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&configFile, "config", "", "configuration file (default .sonataverify.yaml in the working directory or $HOME)")
	f.String("log-level", "", "diagnostic log level: debug, info, warn or error")
	f.String("driver", "", "database driver: mysql or postgres")
	f.String("host", "", "observation database host")
	f.Int("port", 0, "observation database port")
	f.String("database", "", "observation database name")
	f.String("user", "", "observation database user")
	f.String("password", "", "observation database password")
	f.String("my-cnf", "", "MySQL option file providing the [client] credentials")
	f.StringSlice("roster", nil, "expected dx nodes, comma separated")
	f.String("report", "", "write the run report to this file")
	f.String("report-format", "", "report file format: yaml or json")
	f.String("pushgateway", "", "Prometheus Pushgateway URL for run metrics")
	f.String("slack-webhook", "", "Slack incoming webhook URL for run notifications")
}

// loadConfig resolves the configuration for cmd from the file, the
// environment and the flags set on the command line. It also returns the
// path of the file read, empty when only defaults applied.
func loadConfig(cmd *cobra.Command) (*models.Config, string, error) {
	cm := core.NewConfigurationManager(configFile, internal.ConfigSearchPaths()...)
	if err := cm.BindFlags(cmd.Flags(), flagKeys); err != nil {
		return nil, "", fmt.Errorf("loading configuration: %w", err)
	}
	cfg, err := cm.Load()
	if err != nil {
		return nil, "", fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, cm.ConfigFileUsed(), nil
}
