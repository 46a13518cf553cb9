package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// Alert conditions.
const (
	ConditionVerificationFailing = "verification_failing"
	ConditionNodeMissingSignal   = "node_missing_signal"
	ConditionVerificationStale   = "verification_stale"
)

// AlertEngine evaluates alert conditions against the run history.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	history    History
	thresholds models.HistoryConfig
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine over history using the thresholds
// in cfg.
func NewAlertEngine(history History, cfg models.HistoryConfig) AlertEngine {
	return &alertEngine{
		history:    history,
		thresholds: cfg,
		now:        time.Now,
	}
}

// Evaluate reads the history and checks every alert condition. An empty
// history raises no alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	records, err := ae.history.Read(HistoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	now := ae.now().UTC()
	var alerts []Alert
	alerts = append(alerts, ae.checkFailingRuns(records, now)...)
	alerts = append(alerts, ae.checkMissingNodes(records, now)...)
	alerts = append(alerts, ae.checkStale(records, now)...)
	return alerts, nil
}

// checkFailingRuns alerts when the most recent runs all recorded errors.
func (ae *alertEngine) checkFailingRuns(records []RunRecord, now time.Time) []Alert {
	streak := 0
	for i := len(records) - 1; i >= 0 && records[i].Failed(); i-- {
		streak++
	}
	if streak < ae.thresholds.FailingRuns {
		return nil
	}
	return []Alert{{
		ID:          "failing-" + records[len(records)-1].RunID,
		Condition:   ConditionVerificationFailing,
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("the last %d verification runs recorded errors", streak),
		TriggeredAt: now,
	}}
}

// checkMissingNodes alerts for each node absent from the test signal
// results of the most recent MissingRuns runs.
func (ae *alertEngine) checkMissingNodes(records []RunRecord, now time.Time) []Alert {
	n := ae.thresholds.MissingRuns
	if len(records) < n {
		return nil
	}
	recent := records[len(records)-n:]

	counts := make(map[string]int)
	var order []string
	for _, rec := range recent {
		for _, node := range rec.Missing {
			if counts[node] == 0 {
				order = append(order, node)
			}
			counts[node]++
		}
	}

	var alerts []Alert
	for _, node := range order {
		if counts[node] < n {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "missing-" + node,
			Condition:   ConditionNodeMissingSignal,
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("%s did not see the test signal in the last %d runs", node, n),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkStale alerts when no run finished within StaleAfter.
func (ae *alertEngine) checkStale(records []RunRecord, now time.Time) []Alert {
	if ae.thresholds.StaleAfter <= 0 {
		return nil
	}
	last := records[len(records)-1].Time
	if now.Sub(last) <= ae.thresholds.StaleAfter {
		return nil
	}
	return []Alert{{
		ID:          "stale",
		Condition:   ConditionVerificationStale,
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("no verification run since %s", last.Format(time.RFC3339)),
		TriggeredAt: now,
	}}
}

// FormatAlerts renders alerts one per line in evaluation order.
func FormatAlerts(alerts []Alert) string {
	if len(alerts) == 0 {
		return "no alerts\n"
	}
	var b strings.Builder
	for _, a := range alerts {
		fmt.Fprintf(&b, "[%s] %s: %s\n", a.Severity, a.Condition, a.Message)
	}
	return b.String()
}
