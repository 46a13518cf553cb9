package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// --- Helper ---

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// --- Load tests ---

func TestLoad_Defaults_WhenNoFile(t *testing.T) {
	cm := NewConfigurationManager("", t.TempDir())

	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want localhost", cfg.Database.Host)
	}
	if cfg.Database.Name != "sonata_autotest" {
		t.Errorf("Database.Name = %q, want sonata_autotest", cfg.Database.Name)
	}
	if cfg.Database.User != "sonata" {
		t.Errorf("Database.User = %q, want sonata", cfg.Database.User)
	}
	if cfg.Database.Driver != models.DriverMySQL {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.Timeout != 10*time.Second {
		t.Errorf("Database.Timeout = %v, want 10s", cfg.Database.Timeout)
	}
	if len(cfg.Roster) != 16 || cfg.Roster[0] != "dx1000" || cfg.Roster[15] != "dx2007" {
		t.Errorf("Roster = %v, want dx1000..dx2007", cfg.Roster)
	}
	if cfg.TestSignal.FrequencyMHz != 1420.8001 {
		t.Errorf("FrequencyMHz = %v, want 1420.8001", cfg.TestSignal.FrequencyMHz)
	}
	if cfg.TestSignal.Reason != "Confrm" {
		t.Errorf("Reason = %q, want Confrm", cfg.TestSignal.Reason)
	}
	if cm.ConfigFileUsed() != "" {
		t.Errorf("ConfigFileUsed = %q, want empty", cm.ConfigFileUsed())
	}
}

func TestLoad_FromSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".sonataverify.yaml", `
database:
  host: sse-db.example.org
  password: s3cret
  timeout: 3s
roster:
  - dx1000
  - dx1001
test_signal:
  frequency_mhz: 1501.123456
report:
  format: json
`)

	cm := NewConfigurationManager("", dir)
	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Host != "sse-db.example.org" {
		t.Errorf("Database.Host = %q", cfg.Database.Host)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("Database.Password = %q", cfg.Database.Password)
	}
	if cfg.Database.Timeout != 3*time.Second {
		t.Errorf("Database.Timeout = %v, want 3s", cfg.Database.Timeout)
	}
	// Unset keys keep their defaults.
	if cfg.Database.User != "sonata" {
		t.Errorf("Database.User = %q, want sonata", cfg.Database.User)
	}
	if strings.Join(cfg.Roster, ",") != "dx1000,dx1001" {
		t.Errorf("Roster = %v", cfg.Roster)
	}
	if cfg.TestSignal.FrequencyMHz != 1501.123456 {
		t.Errorf("FrequencyMHz = %v", cfg.TestSignal.FrequencyMHz)
	}
	if cfg.TestSignal.ToleranceMHz != 0.00005 {
		t.Errorf("ToleranceMHz = %v, want default", cfg.TestSignal.ToleranceMHz)
	}
	if cfg.Report.Format != models.ReportFormatJSON {
		t.Errorf("Report.Format = %q", cfg.Report.Format)
	}
	if !strings.HasSuffix(cm.ConfigFileUsed(), ".sonataverify.yaml") {
		t.Errorf("ConfigFileUsed = %q", cm.ConfigFileUsed())
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	cm := NewConfigurationManager(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := cm.Load(); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "database: [unclosed\n")

	cm := NewConfigurationManager(path)
	if _, err := cm.Load(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SONATA_VERIFY_DATABASE_PASSWORD", "from-env")
	t.Setenv("SONATA_VERIFY_DATABASE_DRIVER", "postgres")
	t.Setenv("SONATA_VERIFY_ROSTER", "dx3000,dx3001")

	cm := NewConfigurationManager("", t.TempDir())
	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Password != "from-env" {
		t.Errorf("Database.Password = %q, want from-env", cfg.Database.Password)
	}
	if cfg.Database.Driver != models.DriverPostgres {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if strings.Join(cfg.Roster, ",") != "dx3000,dx3001" {
		t.Errorf("Roster = %v", cfg.Roster)
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "verify.yaml", "database:\n  host: from-file\n  user: file-user\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "", "")
	flags.String("user", "", "")
	if err := flags.Parse([]string{"--host", "from-flag"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cm := NewConfigurationManager(path)
	if err := cm.BindFlags(flags, map[string]string{"host": "database.host", "user": "database.user"}); err != nil {
		t.Fatalf("binding flags: %v", err)
	}

	cfg, err := cm.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "from-flag" {
		t.Errorf("Database.Host = %q, want from-flag", cfg.Database.Host)
	}
	if cfg.Database.User != "file-user" {
		t.Errorf("Database.User = %q, want file-user (flag not set)", cfg.Database.User)
	}
}

func TestBindFlags_UnknownFlag(t *testing.T) {
	cm := NewConfigurationManager("")
	err := cm.BindFlags(pflag.NewFlagSet("test", pflag.ContinueOnError), map[string]string{"nope": "database.host"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// --- ValidateConfig tests ---

func TestValidateConfig(t *testing.T) {
	cm := NewConfigurationManager("")

	tests := []struct {
		name    string
		mutate  func(*models.Config)
		wantErr string
	}{
		{"defaults are valid", func(*models.Config) {}, ""},
		{"unknown driver", func(c *models.Config) { c.Database.Driver = "sqlite" }, "database.driver"},
		{"empty database name", func(c *models.Config) { c.Database.Name = "" }, "database.name"},
		{"empty roster", func(c *models.Config) { c.Roster = nil }, "at least one node"},
		{"duplicate roster entry", func(c *models.Config) { c.Roster = []string{"dx1000", "dx1000"} }, "more than once"},
		{"empty roster entry", func(c *models.Config) { c.Roster = []string{""} }, "empty node name"},
		{"zero tolerance", func(c *models.Config) { c.TestSignal.ToleranceMHz = 0 }, "tolerance_mhz"},
		{"empty reason", func(c *models.Config) { c.TestSignal.Reason = "" }, "reason"},
		{"bad report format", func(c *models.Config) { c.Report.Format = "xml" }, "report.format"},
		{"bad notification policy", func(c *models.Config) { c.Notifications.Policy = "never" }, "notifications.policy"},
		{"zero failing runs", func(c *models.Config) { c.History.FailingRuns = 0 }, "history.failing_runs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultConfig()
			tt.mutate(&cfg)
			err := cm.ValidateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}

	if err := cm.ValidateConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestRedacted(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.Database.Password = "hunter2"
	cfg.Notifications.SlackWebhookURL = "https://hooks.slack.com/services/T/B/X"

	red := Redacted(cfg)
	if red.Database.Password == "hunter2" || red.Notifications.SlackWebhookURL == cfg.Notifications.SlackWebhookURL {
		t.Errorf("secrets not redacted: %+v", red)
	}
	if cfg.Database.Password != "hunter2" {
		t.Error("Redacted modified its argument")
	}

	empty := Redacted(models.DefaultConfig())
	if empty.Database.Password != "" {
		t.Errorf("empty password redacted to %q", empty.Database.Password)
	}
}
