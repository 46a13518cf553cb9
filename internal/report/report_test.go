package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensonata/sonata-verify/pkg/models"
)

func sampleReport() *models.Report {
	return &models.Report{
		RunID:      "8b0f3f0e-6f0a-4c55-9d7b-0f1f2b7d9e11",
		Since:      time.Date(2011, 3, 13, 7, 6, 40, 0, time.UTC),
		StartedAt:  time.Date(2011, 3, 13, 8, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2011, 3, 13, 8, 0, 1, 0, time.UTC),
		Roster:     []string{"dx1000", "dx1001"},
		Checks: []models.CheckResult{
			{Name: models.CheckActivityRanOk, Rows: 1},
			{Name: models.CheckAllNodesSawTestSignal, Rows: 1, Warnings: 1},
		},
		Findings: []models.Finding{
			{Check: models.CheckAllNodesSawTestSignal, Severity: models.SeverityWarning, Message: "nodes that did NOT see the test signal: [dx1001]"},
		},
		NodesSawSignal: []string{"dx1000"},
		Warnings:       1,
	}
}

func TestWriteFile_YAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	want := sampleReport()

	if err := WriteFile(path, want, models.ReportFormatYAML); err != nil {
		t.Fatalf("writing report: %v", err)
	}

	got, err := ReadFile(path, models.ReportFormatYAML)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if got.RunID != want.RunID || got.Warnings != 1 || len(got.Findings) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Since.Equal(want.Since) {
		t.Errorf("since = %v, want %v", got.Since, want.Since)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the report file, found %d entries", len(entries))
	}
}

func TestWriteFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	if err := WriteFile(path, sampleReport(), models.ReportFormatJSON); err != nil {
		t.Fatalf("writing report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if !strings.Contains(string(data), `"nodes_saw_signal": [`) {
		t.Errorf("unexpected json:\n%s", data)
	}

	got, err := ReadFile(path, models.ReportFormatJSON)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if got.Findings[0].Severity != models.SeverityWarning {
		t.Errorf("severity = %q", got.Findings[0].Severity)
	}
}

func TestEncode_YAMLKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleReport(), ""); err != nil {
		t.Fatalf("encoding: %v", err)
	}
	out := buf.String()
	for _, key := range []string{"run_id:", "exit_status: 0", "severity: warning", "- dx1000"} {
		if !strings.Contains(out, key) {
			t.Errorf("yaml output missing %q:\n%s", key, out)
		}
	}
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, sampleReport(), "xml"); err == nil {
		t.Fatal("expected error for xml format")
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "x"), "xml"); err == nil {
		t.Fatal("expected error reading a missing file")
	}
}
