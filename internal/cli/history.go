package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensonata/sonata-verify/internal"
	"github.com/opensonata/sonata-verify/internal/observability"
)

var (
	historyJSON   bool
	historySince  string
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded verification runs",
	Long: `List the verification runs recorded in the run history file (history.path).

Each line shows when the run finished, its warning and error totals, its exit
status and the roster nodes that did not see the test signal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceTime, err := parseSinceDuration(historySince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		records, err := app.History(observability.HistoryFilter{Since: &sinceTime, FailedOnly: historyFailed})
		if err != nil {
			return fmt.Errorf("reading run history: %w", err)
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting history as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Verification runs (since %s)\n\n", sinceTime.Format("2006-01-02"))
		if len(records) == 0 {
			fmt.Fprintln(out, "  none")
			return nil
		}
		for _, rec := range records {
			fmt.Fprintf(out, "  %s  warnings=%d errors=%d exit=%d",
				rec.Time.Format("2006-01-02 15:04 UTC"), rec.Warnings, rec.Errors, rec.ExitStatus)
			if len(rec.Missing) > 0 {
				fmt.Fprintf(out, "  missing=%s", strings.Join(rec.Missing, ","))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

// newApp loads the configuration for cmd and wires an App around it.
func newApp(cmd *cobra.Command) (*internal.App, error) {
	cfg, source, err := loadConfig(cmd)
	if err != nil {
		return nil, &ExitError{Code: ExitFault, Err: err}
	}
	app := internal.NewApp(cfg, internal.Options{
		Stderr:    cmd.ErrOrStderr(),
		OpenStore: openStore,
	})
	app.Logger.Debug("configuration loaded", "file", source)
	return app, nil
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -30), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output runs as JSON")
	historyCmd.Flags().StringVar(&historySince, "since", "30d", "Time window (e.g. 7d, 30d, 24h)")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "Only list runs that recorded errors")
	rootCmd.AddCommand(historyCmd)
}
