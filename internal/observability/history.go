package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// RunRecord is the outcome of one verification run as kept in the history.
type RunRecord struct {
	Time       time.Time `json:"time"`
	RunID      string    `json:"run_id"`
	Since      time.Time `json:"since"`
	Warnings   int       `json:"warnings"`
	Errors     int       `json:"errors"`
	ExitStatus int       `json:"exit_status"`
	// Missing lists the roster nodes that did not see the test signal.
	Missing []string `json:"missing,omitempty"`
}

// Failed reports whether the run recorded at least one error.
func (r RunRecord) Failed() bool {
	return r.ExitStatus != 0
}

// RecordFromReport summarises a finished report for the history.
func RecordFromReport(rep *models.Report) RunRecord {
	saw := make(map[string]bool, len(rep.NodesSawSignal))
	for _, n := range rep.NodesSawSignal {
		saw[n] = true
	}
	var missing []string
	for _, n := range rep.Roster {
		if !saw[n] {
			missing = append(missing, n)
		}
	}
	return RunRecord{
		Time:       rep.FinishedAt.UTC(),
		RunID:      rep.RunID,
		Since:      rep.Since.UTC(),
		Warnings:   rep.Warnings,
		Errors:     rep.Errors,
		ExitStatus: rep.ExitStatus,
		Missing:    missing,
	}
}

// HistoryFilter specifies criteria for reading run records.
type HistoryFilter struct {
	Since      *time.Time
	FailedOnly bool
}

// History defines the interface for appending and reading run records.
type History interface {
	Append(rec RunRecord) error
	Read(filter HistoryFilter) ([]RunRecord, error)
	Close() error
}

// jsonlHistory implements History using an append-only JSONL file.
type jsonlHistory struct {
	path string
	mu   sync.Mutex
}

// NewJSONLHistory returns the run history kept in the JSONL file at path.
// The file is created by the first Append; reading a history that does not
// exist yet returns no records.
func NewJSONLHistory(path string) (History, error) {
	if path == "" {
		return nil, fmt.Errorf("run history path is empty")
	}
	return &jsonlHistory{path: path}, nil
}

// Append writes rec as one JSON line. Runs started by overlapping processes
// are serialised through a lock file next to the history.
func (h *jsonlHistory) Append(rec RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling run record: %w", err)
	}
	data = append(data, '\n')

	unlock, err := lockFile(h.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing run record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing run history: %w", err)
	}
	return nil
}

// Read returns the records matching filter, oldest first.
func (h *jsonlHistory) Read(filter HistoryFilter) ([]RunRecord, error) {
	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run history for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []RunRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec RunRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // skip malformed lines
		}

		if matchesHistoryFilter(rec, filter) {
			records = append(records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning run history: %w", err)
	}

	return records, nil
}

// Close is a no-op; the file is only held open for the duration of Append.
func (h *jsonlHistory) Close() error {
	return nil
}

func matchesHistoryFilter(rec RunRecord, filter HistoryFilter) bool {
	if filter.Since != nil && rec.Time.Before(*filter.Since) {
		return false
	}
	if filter.FailedOnly && !rec.Failed() {
		return false
	}
	return true
}
