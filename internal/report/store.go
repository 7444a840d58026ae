package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/netreconcile/internal/models"
	"gopkg.in/yaml.v3"
)

// Save writes the report as JSON or YAML, chosen by file extension
func Save(path string, r *models.ReconciliationReport) error {
	format := FormatJSON
	if isYAML(path) {
		format = FormatYAML
	}
	f, err := NewFormatter(format)
	if err != nil {
		return err
	}
	out, err := f.Format(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Load reads a report saved by Save and checks its counters
func Load(path string) (*models.ReconciliationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r models.ReconciliationReport
	if isYAML(path) {
		err = yaml.Unmarshal(data, &r)
	} else {
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	if r.Diffs == nil {
		r.Diffs = []models.DiffResult{}
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report %s: %w", path, err)
	}
	return &r, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
