package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yourusername/netreconcile/internal/models"
	"gopkg.in/yaml.v3"
)

// Formatter defines the interface for formatting reconciliation reports
type Formatter interface {
	Format(report *models.ReconciliationReport) (string, error)
}

// FormatType represents the output format for the report
type FormatType string

const (
	// FormatJSON outputs the report in JSON format
	FormatJSON FormatType = "json"
	// FormatYAML outputs the report in YAML format
	FormatYAML FormatType = "yaml"
	// FormatMarkdown outputs the operator-facing markdown report
	FormatMarkdown FormatType = "markdown"
	// FormatText outputs the report in human-readable text format
	FormatText FormatType = "text"
)

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatJSON:
		return &jsonFormatter{}, nil
	case FormatYAML:
		return &yamlFormatter{}, nil
	case FormatMarkdown, "md":
		return &markdownFormatter{}, nil
	case FormatText:
		return &textFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

type jsonFormatter struct{}

func (f *jsonFormatter) Format(report *models.ReconciliationReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("cannot format nil report")
	}

	data, err := json.MarshalIndent(report.ToDict(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %v", err)
	}
	return string(data), nil
}

type yamlFormatter struct{}

func (f *yamlFormatter) Format(report *models.ReconciliationReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("cannot format nil report")
	}

	data, err := yaml.Marshal(report.ToDict())
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to YAML: %v", err)
	}
	return string(data), nil
}

type markdownFormatter struct{}

func (f *markdownFormatter) Format(report *models.ReconciliationReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("cannot format nil report")
	}
	return report.ToMarkdown(), nil
}

type textFormatter struct{}

func (f *textFormatter) Format(report *models.ReconciliationReport) (string, error) {
	if report == nil {
		return "No report data available\n", nil
	}

	var sb strings.Builder

	sb.WriteString("Network Reconciliation Report\n")
	sb.WriteString(fmt.Sprintf("Run ID: %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("Devices: %s\n", strings.Join(report.DeviceScope, ", ")))
	sb.WriteString(fmt.Sprintf("Entities: %d total, %d matched, %d mismatched, %d missing in SSOT, %d missing in network\n",
		report.TotalEntities, report.Matched, report.Mismatched, report.MissingInSSOT, report.MissingInNetwork))

	if len(report.Diffs) == 0 {
		sb.WriteString("\nNo drift detected.\n")
	} else {
		sb.WriteString(fmt.Sprintf("\nFound %d drift(s):\n\n", len(report.Diffs)))
		for i, d := range report.Diffs {
			sb.WriteString(fmt.Sprintf("%d. [%s] %s %s %s\n", i+1, d.Severity, d.Device, d.EntityType, d.Field))
			switch {
			case d.MissingInSSOT():
				sb.WriteString(fmt.Sprintf("   Missing in SSOT: %v\n", formatValue(d.NetworkValue)))
			case d.IsExistence():
				sb.WriteString(fmt.Sprintf("   Missing in network: %v\n", formatValue(d.SSOTValue)))
			default:
				sb.WriteString(fmt.Sprintf("   Network: %v\n", formatValue(d.NetworkValue)))
				sb.WriteString(fmt.Sprintf("   SSOT: %v\n", formatValue(d.SSOTValue)))
				sb.WriteString(fmt.Sprintf("   Auto-correctable: %t\n", d.AutoCorrectable))
			}
		}
	}

	if len(report.Failures) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d collection failure(s):\n", len(report.Failures)))
		for _, f := range report.Failures {
			sb.WriteString(fmt.Sprintf("  - %s %s (%s): %s\n", f.Device, f.EntityType, f.Side, f.Error))
		}
	}

	return sb.String(), nil
}

// FormatResults renders the outcome of a reconcile run with its per-action tally
func FormatResults(format FormatType, results []models.ReconcileResult, stats map[models.ReconcileAction]int) (string, error) {
	tally := make(map[string]int, len(stats))
	for action, n := range stats {
		tally[string(action)] = n
	}
	if results == nil {
		results = []models.ReconcileResult{}
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(map[string]any{"results": results, "stats": tally}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal results to JSON: %v", err)
		}
		return string(data), nil
	case FormatYAML:
		data, err := yaml.Marshal(map[string]any{"results": results, "stats": tally})
		if err != nil {
			return "", fmt.Errorf("failed to marshal results to YAML: %v", err)
		}
		return string(data), nil
	case FormatText, FormatMarkdown, "md":
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}

	var sb strings.Builder
	sb.WriteString("| Device | Field | Action | OK | Message |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, r := range results {
		ok := "no"
		if r.Success {
			ok = "yes"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n", r.Diff.Device, r.Diff.Field, r.Action, ok, r.Message))
	}

	sb.WriteString("\n")
	for _, action := range models.AllActions() {
		if n := stats[action]; n > 0 {
			sb.WriteString(fmt.Sprintf("%s: %d\n", action, n))
		}
	}
	return sb.String(), nil
}

// Formats lists the accepted format names
func Formats() []string {
	out := []string{string(FormatJSON), string(FormatYAML), string(FormatMarkdown), string(FormatText)}
	sort.Strings(out)
	return out
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		if val == "" {
			return "<empty>"
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
