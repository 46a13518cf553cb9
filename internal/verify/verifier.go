// Package verify checks that the calibration test signal injected during a
// SonATA test run was observed by every expected dx node.
//
// A Verifier runs three independent checks against the observation
// database: the activity ran and was valid, every expected node took part,
// and every node confirmed the test signal in both polarizations. Each
// check records warnings and errors; an error makes the run fail but never
// stops the checks that follow it.
package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/opensonata/sonata-verify/internal/store"
	"github.com/opensonata/sonata-verify/pkg/models"
)

const titleRule = "==============="

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
)

// Options configures a Verifier.
type Options struct {
	// TestSignal locates the calibration signal.
	TestSignal models.TestSignalConfig
	// Out receives the human readable report. Defaults to os.Stdout.
	Out io.Writer
	// Color enables terminal styling of Out.
	Color bool
	// Logger receives structured diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
	// RunID identifies the run. A random id is generated when empty.
	RunID string
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Verifier runs the test signal checks and accumulates their findings.
type Verifier struct {
	store  store.Store
	signal models.TestSignalConfig
	out    io.Writer
	color  bool
	log    *slog.Logger
	now    func() time.Time

	warningCount int
	errorCount   int

	report models.Report
	check  *models.CheckResult
}

// New creates a Verifier reading from s.
func New(s store.Store, opts Options) *Verifier {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	return &Verifier{
		store:  s,
		signal: opts.TestSignal,
		out:    opts.Out,
		color:  opts.Color,
		log:    opts.Logger.With("run_id", opts.RunID),
		now:    opts.Now,
		report: models.Report{RunID: opts.RunID},
	}
}

// Run executes the activity, node participation and test signal checks in
// that order. A store failure stops the run and is returned; findings never do.
func (v *Verifier) Run(ctx context.Context, since time.Time, roster []string) (*models.Report, error) {
	v.report.Since = since
	v.report.Roster = append([]string(nil), roster...)
	v.report.StartedAt = v.now()

	v.log.Info("starting verification", "since", since.Unix(), "roster_size", len(roster))

	if err := v.CheckActivityRanOk(ctx, since); err != nil {
		return nil, err
	}
	if err := v.CheckAllExpectedNodesRanOk(ctx, since, roster); err != nil {
		return nil, err
	}
	if err := v.CheckAllNodesSawTestSignal(ctx, since, roster); err != nil {
		return nil, err
	}

	v.report.FinishedAt = v.now()
	report := v.Report()

	v.log.Info("verification finished",
		"warnings", report.Warnings,
		"errors", report.Errors,
		"exit_status", report.ExitStatus)
	return report, nil
}

// CheckActivityRanOk verifies that exactly one activity was created after
// since and that it was flagged valid.
func (v *Verifier) CheckActivityRanOk(ctx context.Context, since time.Time) error {
	v.beginCheck(models.CheckActivityRanOk)
	v.printQuery(store.QueryActivities)

	acts, err := v.store.Activities(ctx, since)
	if err != nil {
		return fmt.Errorf("%s: %w", models.CheckActivityRanOk, err)
	}
	v.check.Rows = len(acts)

	switch {
	case len(acts) == 0:
		v.printError("did not find an activity after the given time")
		v.abortCheck()
		return nil
	case len(acts) > 1:
		v.printError(fmt.Sprintf("found more activities than expected: %d", len(acts)))
		v.abortCheck()
		return nil
	}

	act := acts[0]
	v.log.Debug("found activity", "activity_id", act.ID, "valid", act.Validity.Valid())

	if !act.Validity.Valid() {
		v.printError("activity does not have valid status, comment=" + act.Comments)
		return nil
	}
	v.printOK()
	return nil
}

// CheckAllExpectedNodesRanOk verifies that every roster node reported an
// activity unit after since and that at least one of them was valid.
// Units are matched by time only, not by activity.
func (v *Verifier) CheckAllExpectedNodesRanOk(ctx context.Context, since time.Time, roster []string) error {
	v.beginCheck(models.CheckAllExpectedNodesRanOk)
	v.printQuery(store.QueryActivityUnits)

	units, err := v.store.ActivityUnits(ctx, since)
	if err != nil {
		return fmt.Errorf("%s: %w", models.CheckAllExpectedNodesRanOk, err)
	}
	v.check.Rows = len(units)
	v.printf("result = %d rows\n", len(units))

	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.NodeHostName)
	}
	v.report.NodesReporting = names

	if len(units) != len(roster) {
		v.printWarning(fmt.Sprintf("expected %d nodes, found %d nodes", len(roster), len(units)))
	}

	if len(units) == 0 {
		v.printError("did not find results for any nodes")
		v.abortCheck()
		return nil
	}

	for _, name := range unexpectedNodes(roster, names) {
		v.printWarning("found unexpected node: " + name)
	}

	if missing := missingNodes(roster, names); len(missing) > 0 {
		v.printWarning(fmt.Sprintf("did not find results from nodes: %v", missing))
	}

	validCount := 0
	for _, u := range units {
		if u.Validity.Valid() {
			validCount++
			continue
		}
		v.printWarning(u.NodeHostName + " reported an invalid observation")
		v.printf("%s\n", u.Comments)
	}

	if validCount == 0 {
		v.printError("no nodes had valid observation status")
		v.abortCheck()
		return nil
	}
	v.printOK()
	return nil
}

// CheckAllNodesSawTestSignal verifies that every roster node confirmed the
// test signal in both polarizations after since. Each result row is judged
// on its own, so a node reported twice is checked twice.
func (v *Verifier) CheckAllNodesSawTestSignal(ctx context.Context, since time.Time, roster []string) error {
	v.beginCheck(models.CheckAllNodesSawTestSignal)
	v.printQuery(store.QuerySignals)

	low, high := v.signal.Window()
	signals, err := v.store.ConfirmedSignals(ctx, store.SignalQuery{
		Since:   since,
		LowMHz:  low,
		HighMHz: high,
		Reason:  v.signal.Reason,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", models.CheckAllNodesSawTestSignal, err)
	}
	v.check.Rows = len(signals)
	v.printf("result = %d rows\n", len(signals))

	if len(signals) != len(roster) {
		v.printWarning(fmt.Sprintf("expected %d nodes, found %d", len(roster), len(signals)))
	}

	if len(signals) == 0 {
		v.printError("did not find test signal for any nodes")
		v.abortCheck()
		return nil
	}

	expected := newNodeSet(roster)
	sawSignal := make([]string, 0, len(signals))
	for _, sig := range signals {
		name := sig.NodeName()
		sawSignal = append(sawSignal, name)

		if !expected.has(name) {
			v.printWarning("found unexpected node: " + name)
		}
		if sig.Pol != models.BothPolarizations {
			v.printWarning(fmt.Sprintf("test signal seen only in %s pol for %s", sig.Pol, name))
		}
	}
	v.report.NodesSawSignal = sawSignal

	v.printf("nodes that saw test signal: %v\n", sawSignal)
	if notSeen := missingNodes(roster, sawSignal); len(notSeen) > 0 {
		v.printWarning(fmt.Sprintf("nodes that did NOT see the test signal: %v", notSeen))
	}

	v.printOK()
	return nil
}

// PrintSummary writes the warning and error totals.
func (v *Verifier) PrintSummary() {
	v.printf("\n")
	v.printf("================================\n")
	v.printf("Summary: Warnings: %d Errors: %d\n", v.warningCount, v.errorCount)
	v.printf("================================\n")
}

// ExitStatus returns 1 if any error was recorded, 0 otherwise.
func (v *Verifier) ExitStatus() int {
	if v.errorCount > 0 {
		return 1
	}
	return 0
}

// Warnings returns the number of warnings recorded so far.
func (v *Verifier) Warnings() int { return v.warningCount }

// Errors returns the number of errors recorded so far.
func (v *Verifier) Errors() int { return v.errorCount }

// Report returns a snapshot of the run so far.
func (v *Verifier) Report() *models.Report {
	r := v.report
	r.Checks = append([]models.CheckResult(nil), v.report.Checks...)
	r.Findings = append([]models.Finding(nil), v.report.Findings...)
	r.Warnings = v.warningCount
	r.Errors = v.errorCount
	r.ExitStatus = v.ExitStatus()
	return &r
}

func (v *Verifier) beginCheck(name string) {
	v.report.Checks = append(v.report.Checks, models.CheckResult{Name: name})
	v.check = &v.report.Checks[len(v.report.Checks)-1]

	v.printf("\n%s\n%s\n", v.paint(titleStyle, name), titleRule)
}

func (v *Verifier) abortCheck() {
	v.check.Aborted = true
	v.log.Debug("check aborted", "check", v.check.Name)
}

func (v *Verifier) printQuery(name string) {
	query := v.store.Describe(name)
	v.log.Debug("running query", "check", v.check.Name, "query", query)
	v.printf("query= %s\n", query)
}

func (v *Verifier) printError(msg string) {
	v.errorCount++
	v.record(models.SeverityError, msg)
	v.printf("%s %s\n", v.paint(errorStyle, "Error:"), msg)
}

func (v *Verifier) printWarning(msg string) {
	v.warningCount++
	v.record(models.SeverityWarning, msg)
	v.printf("%s %s\n", v.paint(warningStyle, "Warning:"), msg)
}

func (v *Verifier) printOK() {
	v.printf("%s\n", v.paint(okStyle, "OK"))
}

func (v *Verifier) record(sev models.Severity, msg string) {
	check := ""
	if v.check != nil {
		check = v.check.Name
		switch sev {
		case models.SeverityError:
			v.check.Errors++
		case models.SeverityWarning:
			v.check.Warnings++
		}
	}
	v.report.Findings = append(v.report.Findings, models.Finding{
		Check:    check,
		Severity: sev,
		Message:  msg,
	})
	v.log.Debug("finding", "check", check, "severity", sev, "message", msg)
}

func (v *Verifier) paint(style lipgloss.Style, s string) string {
	if !v.color {
		return s
	}
	return style.Render(s)
}

func (v *Verifier) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(v.out, format, args...)
}
