package report_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/report"
	"gopkg.in/yaml.v3"
)

func sampleReport() *models.ReconciliationReport {
	r := &models.ReconciliationReport{
		RunID:       "run-1",
		Timestamp:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		DeviceScope: []string{"R1"},
		Diffs:       []models.DiffResult{},
	}
	r.AddMatch()
	r.AddDiff(models.DiffResult{
		EntityType:      models.EntityInterface,
		Device:          "R1",
		Field:           "Gi0/1.mtu",
		NetworkValue:    1500,
		SSOTValue:       9000,
		Severity:        models.SeverityInfo,
		Source:          models.SourceSuzieQ,
		AutoCorrectable: true,
		SSOTID:          42,
		SSOTEndpoint:    "/api/dcim/interfaces/",
	})
	r.AddDiff(models.DiffResult{
		EntityType:   models.EntityInterface,
		Device:       "R1",
		Field:        models.FieldExistence,
		NetworkValue: "Gi0/9",
		SSOTValue:    models.MissingValue,
		Severity:     models.SeverityWarning,
		Source:       models.SourceSuzieQ,
	})
	return r
}

func TestFormatter_JSON(t *testing.T) {
	formatter, err := report.NewFormatter(report.FormatJSON)
	require.NoError(t, err)

	_, err = formatter.Format(nil)
	assert.Error(t, err)

	result, err := formatter.Format(sampleReport())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "2025-03-01T12:00:00Z", decoded["timestamp"])
	assert.Equal(t, float64(3), decoded["total_entities"])
	assert.Equal(t, float64(1), decoded["mismatched"])
	assert.Equal(t, float64(1), decoded["missing_in_ssot"])
	assert.Len(t, decoded["diffs"], 2)
	assert.Equal(t, map[string]any{"INFO": float64(1), "WARNING": float64(1)}, decoded["summary_by_severity"])
}

func TestFormatter_YAML(t *testing.T) {
	formatter, err := report.NewFormatter(report.FormatYAML)
	require.NoError(t, err)

	result, err := formatter.Format(sampleReport())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, 1, decoded["matched"])
	assert.Contains(t, result, "field: Gi0/1.mtu")
}

func TestFormatter_Markdown(t *testing.T) {
	formatter, err := report.NewFormatter(report.FormatMarkdown)
	require.NoError(t, err)

	r := sampleReport()
	result, err := formatter.Format(r)
	require.NoError(t, err)
	assert.Equal(t, r.ToMarkdown(), result)
	assert.Contains(t, result, "**Mismatched**: 1")
}

func TestFormatter_Text(t *testing.T) {
	tests := []struct {
		name     string
		report   *models.ReconciliationReport
		expected string
	}{
		{
			name:     "nil report",
			report:   nil,
			expected: "No report data available\n",
		},
		{
			name: "no drift",
			report: &models.ReconciliationReport{
				RunID:         "run-0",
				DeviceScope:   []string{"R1", "R2"},
				TotalEntities: 4,
				Matched:       4,
			},
			expected: `Network Reconciliation Report
Run ID: run-0
Devices: R1, R2
Entities: 4 total, 4 matched, 0 mismatched, 0 missing in SSOT, 0 missing in network

No drift detected.
`,
		},
		{
			name:   "with drifts",
			report: sampleReport(),
			expected: `Network Reconciliation Report
Run ID: run-1
Devices: R1
Entities: 3 total, 1 matched, 1 mismatched, 1 missing in SSOT, 0 missing in network

Found 2 drift(s):

1. [INFO] R1 interface Gi0/1.mtu
   Network: 1500
   SSOT: 9000
   Auto-correctable: true
2. [WARNING] R1 interface existence
   Missing in SSOT: Gi0/9
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := report.NewFormatter(report.FormatText)
			assert.NoError(t, err)

			result, err := formatter.Format(tt.report)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatter_TextFailures(t *testing.T) {
	r := sampleReport()
	r.AddFailure(models.CollectionFailure{Device: "R2", EntityType: models.EntityDevice, Side: models.SideSSOT, Error: "timeout"})

	formatter, err := report.NewFormatter(report.FormatText)
	require.NoError(t, err)
	result, err := formatter.Format(r)
	require.NoError(t, err)
	assert.Contains(t, result, "1 collection failure(s):\n  - R2 device (ssot): timeout\n")
}

func TestNewFormatter_UnsupportedFormat(t *testing.T) {
	_, err := report.NewFormatter("invalid")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestFormatResults(t *testing.T) {
	r := sampleReport()
	results := []models.ReconcileResult{
		{Diff: r.Diffs[0], Action: models.ActionAutoCorrected, Success: true, Message: "[DRY RUN] would update Gi0/1.mtu from 9000 to 1500"},
		{Diff: r.Diffs[1], Action: models.ActionReportOnly, Success: true, Message: "existence drift is reported only"},
	}
	stats := map[models.ReconcileAction]int{
		models.ActionAutoCorrected: 1,
		models.ActionReportOnly:    1,
		models.ActionError:         0,
	}

	text, err := report.FormatResults(report.FormatText, results, stats)
	require.NoError(t, err)
	assert.Contains(t, text, "| R1 | Gi0/1.mtu | auto_corrected | yes | [DRY RUN] would update Gi0/1.mtu from 9000 to 1500 |")
	assert.Contains(t, text, "auto_corrected: 1\nreport_only: 1\n")
	assert.NotContains(t, text, "error: 0")

	js, err := report.FormatResults(report.FormatJSON, results, stats)
	require.NoError(t, err)
	var decoded struct {
		Results []models.ReconcileResult `json:"results"`
		Stats   map[string]int           `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, models.ActionReportOnly, decoded.Results[1].Action)
	assert.Equal(t, 1, decoded.Stats["auto_corrected"])

	_, err = report.FormatResults("xml", results, stats)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	original := sampleReport()
	require.NoError(t, report.Save(path, original))

	loaded, err := report.Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.RunID, loaded.RunID)
	assert.True(t, original.Timestamp.Equal(loaded.Timestamp))
	assert.Equal(t, original.TotalEntities, loaded.TotalEntities)
	require.Len(t, loaded.Diffs, 2)
	assert.Equal(t, 42, loaded.Diffs[0].SSOTID)
	assert.Equal(t, float64(1500), loaded.Diffs[0].NetworkValue)
	assert.True(t, loaded.Diffs[1].MissingInSSOT())

	_, err = report.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
