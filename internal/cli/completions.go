package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// completeTimestamp suggests unix timestamps for the verify argument.
func completeTimestamp(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	now := time.Now()
	return []string{
		strconv.FormatInt(now.Add(-time.Hour).Unix(), 10) + "\tone hour ago",
		strconv.FormatInt(now.Add(-24*time.Hour).Unix(), 10) + "\tone day ago",
	}, cobra.ShellCompDirectiveNoFileComp
}

func completeDrivers(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		models.DriverMySQL + "\tMySQL or MariaDB",
		models.DriverPostgres + "\tPostgreSQL",
	}, cobra.ShellCompDirectiveNoFileComp
}

func completeReportFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{models.ReportFormatYAML, models.ReportFormatJSON}, cobra.ShellCompDirectiveNoFileComp
}

func completeLogLevels(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
}

// completeRoster suggests the default dx nodes for --roster.
func completeRoster(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return models.DefaultRoster(), cobra.ShellCompDirectiveNoFileComp
}

// registerCompletions registers the argument and flag completion functions
// on the root command.
func registerCompletions(cmd *cobra.Command) {
	cmd.ValidArgsFunction = completeTimestamp
	_ = cmd.RegisterFlagCompletionFunc("driver", completeDrivers)
	_ = cmd.RegisterFlagCompletionFunc("report-format", completeReportFormats)
	_ = cmd.RegisterFlagCompletionFunc("log-level", completeLogLevels)
	_ = cmd.RegisterFlagCompletionFunc("roster", completeRoster)
}
