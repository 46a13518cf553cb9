package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/opensonata/sonata-verify/pkg/models"
)

var alertNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, records ...RunRecord) AlertEngine {
	t.Helper()
	h, _ := openHistory(t)
	for _, rec := range records {
		if err := h.Append(rec); err != nil {
			t.Fatalf("appending record: %v", err)
		}
	}
	cfg := models.DefaultConfig().History
	engine := NewAlertEngine(h, cfg)
	engine.(*alertEngine).now = func() time.Time { return alertNow }
	return engine
}

func histRun(id string, hoursAgo int, exit int, missing ...string) RunRecord {
	return RunRecord{
		Time:       alertNow.Add(-time.Duration(hoursAgo) * time.Hour),
		RunID:      id,
		ExitStatus: exit,
		Missing:    missing,
	}
}

func findAlert(alerts []Alert, condition string) *Alert {
	for i := range alerts {
		if alerts[i].Condition == condition {
			return &alerts[i]
		}
	}
	return nil
}

func TestAlertEngine_EmptyHistory(t *testing.T) {
	alerts, err := newTestEngine(t).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", alerts)
	}
}

func TestAlertEngine_FailingStreak(t *testing.T) {
	engine := newTestEngine(t,
		histRun("r1", 40, 0),
		histRun("r2", 30, 1),
		histRun("r3", 20, 1),
		histRun("r4", 10, 1),
	)

	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}

	a := findAlert(alerts, ConditionVerificationFailing)
	if a == nil {
		t.Fatal("expected failing alert")
	}
	if a.Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", a.Severity)
	}
	if a.ID != "failing-r4" {
		t.Errorf("expected id failing-r4, got %s", a.ID)
	}
	if !strings.Contains(a.Message, "last 3") {
		t.Errorf("unexpected message %q", a.Message)
	}
}

func TestAlertEngine_StreakBrokenBySuccess(t *testing.T) {
	engine := newTestEngine(t,
		histRun("r1", 40, 1),
		histRun("r2", 30, 1),
		histRun("r3", 20, 0),
		histRun("r4", 10, 1),
	)

	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, ConditionVerificationFailing) != nil {
		t.Error("did not expect failing alert after a passing run")
	}
}

func TestAlertEngine_NodeMissingRepeatedly(t *testing.T) {
	engine := newTestEngine(t,
		histRun("r1", 30, 0, "dx1003", "dx2000"),
		histRun("r2", 20, 0, "dx1003"),
		histRun("r3", 10, 0, "dx1003", "dx2000"),
	)

	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}

	var missing []Alert
	for _, a := range alerts {
		if a.Condition == ConditionNodeMissingSignal {
			missing = append(missing, a)
		}
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing-node alert, got %+v", missing)
	}
	if missing[0].ID != "missing-dx1003" || missing[0].Severity != SeverityMedium {
		t.Errorf("unexpected alert %+v", missing[0])
	}
}

func TestAlertEngine_TooFewRunsForMissing(t *testing.T) {
	engine := newTestEngine(t,
		histRun("r1", 20, 0, "dx1003"),
		histRun("r2", 10, 0, "dx1003"),
	)

	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, ConditionNodeMissingSignal) != nil {
		t.Error("did not expect missing-node alert with fewer runs than the threshold")
	}
}

func TestAlertEngine_Stale(t *testing.T) {
	engine := newTestEngine(t, histRun("r1", 24*8, 0))

	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	a := findAlert(alerts, ConditionVerificationStale)
	if a == nil {
		t.Fatal("expected stale alert")
	}
	if a.Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", a.Severity)
	}
}

func TestAlertEngine_RecentRunNotStale(t *testing.T) {
	engine := newTestEngine(t, histRun("r1", 1, 0))

	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", alerts)
	}
}

func TestFormatAlerts(t *testing.T) {
	if got := FormatAlerts(nil); got != "no alerts\n" {
		t.Errorf("FormatAlerts(nil) = %q", got)
	}
	got := FormatAlerts([]Alert{{Condition: ConditionVerificationStale, Severity: SeverityLow, Message: "no run"}})
	if got != "[low] verification_stale: no run\n" {
		t.Errorf("FormatAlerts = %q", got)
	}
}
