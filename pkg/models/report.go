package models

import "time"

// Severity classifies a finding recorded during a check.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Names of the checks, in the order they run.
const (
	CheckActivityRanOk         = "testActivityRanOk"
	CheckAllExpectedNodesRanOk = "testAllExpectedDxsRanOk"
	CheckAllNodesSawTestSignal = "testAllDxsSawTestSignal"
)

// Finding is a single warning or error raised by a check.
type Finding struct {
	Check    string   `yaml:"check" json:"check"`
	Severity Severity `yaml:"severity" json:"severity"`
	Message  string   `yaml:"message" json:"message"`
}

// CheckResult summarises one check of a run.
type CheckResult struct {
	Name     string `yaml:"name" json:"name"`
	Rows     int    `yaml:"rows" json:"rows"`
	Warnings int    `yaml:"warnings" json:"warnings"`
	Errors   int    `yaml:"errors" json:"errors"`
	Aborted  bool   `yaml:"aborted,omitempty" json:"aborted,omitempty"`
}

// Passed reports whether the check finished without recording an error.
func (r CheckResult) Passed() bool {
	return r.Errors == 0
}

// Report is the outcome of one verification run.
type Report struct {
	RunID          string        `yaml:"run_id" json:"run_id"`
	Since          time.Time     `yaml:"since" json:"since"`
	StartedAt      time.Time     `yaml:"started_at" json:"started_at"`
	FinishedAt     time.Time     `yaml:"finished_at" json:"finished_at"`
	Roster         []string      `yaml:"roster" json:"roster"`
	Checks         []CheckResult `yaml:"checks" json:"checks"`
	Findings       []Finding     `yaml:"findings" json:"findings"`
	NodesReporting []string      `yaml:"nodes_reporting" json:"nodes_reporting"`
	NodesSawSignal []string      `yaml:"nodes_saw_signal" json:"nodes_saw_signal"`
	Warnings       int           `yaml:"warnings" json:"warnings"`
	Errors         int           `yaml:"errors" json:"errors"`
	ExitStatus     int           `yaml:"exit_status" json:"exit_status"`
}
