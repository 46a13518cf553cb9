// Package report writes the outcome of a verification run to a file so that
// automation can pick up the findings without scraping standard output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// Encode writes r to w in the given format (yaml or json).
func Encode(w io.Writer, r *models.Report, format string) error {
	switch format {
	case models.ReportFormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding report as yaml: %w", err)
		}
		return enc.Close()
	case models.ReportFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding report as json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// WriteFile writes r to path atomically: the report is encoded into a
// temporary file in the same directory and renamed into place.
func WriteFile(path string, r *models.Report, format string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("creating temp report file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := Encode(tmp, r, format); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp report file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming report file: %w", err)
	}
	return nil
}

// ReadFile loads a report previously written by WriteFile.
func ReadFile(path, format string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	var r models.Report
	switch format {
	case models.ReportFormatYAML, "":
		err = yaml.Unmarshal(data, &r)
	case models.ReportFormatJSON:
		err = json.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}
