package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Side names which half of a comparison a collection failure came from
type Side string

const (
	SideNetwork Side = "network"
	SideSSOT    Side = "ssot"
)

// CollectionFailure records a fetch or normalization failure for one device/entity pair
type CollectionFailure struct {
	Device     string     `json:"device" yaml:"device"`
	EntityType EntityType `json:"entity_type" yaml:"entity_type"`
	Side       Side       `json:"side" yaml:"side"`
	Error      string     `json:"error" yaml:"error"`
}

// ReconciliationReport aggregates the outcome of one comparison run
type ReconciliationReport struct {
	RunID            string              `json:"run_id" yaml:"run_id"`
	Timestamp        time.Time           `json:"timestamp" yaml:"timestamp"`
	DeviceScope      []string            `json:"device_scope" yaml:"device_scope"`
	TotalEntities    int                 `json:"total_entities" yaml:"total_entities"`
	Matched          int                 `json:"matched" yaml:"matched"`
	Mismatched       int                 `json:"mismatched" yaml:"mismatched"`
	MissingInSSOT    int                 `json:"missing_in_ssot" yaml:"missing_in_ssot"`
	MissingInNetwork int                 `json:"missing_in_network" yaml:"missing_in_network"`
	Diffs            []DiffResult        `json:"diffs" yaml:"diffs"`
	Failures         []CollectionFailure `json:"collection_failures,omitempty" yaml:"collection_failures,omitempty"`
}

// NewReport creates an empty report for the given device scope
func NewReport(devices []string) *ReconciliationReport {
	scope := make([]string, len(devices))
	copy(scope, devices)
	return &ReconciliationReport{
		RunID:       uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		DeviceScope: scope,
		Diffs:       []DiffResult{},
	}
}

// AddMatch registers one entity whose compared fields were all equal
func (r *ReconciliationReport) AddMatch() {
	r.Matched++
	r.TotalEntities++
}

// AddDiff appends a diff and bumps the counter it belongs to. Existence diffs
// go to missing_in_ssot or missing_in_network depending on which side holds
// the missing sentinel; everything else counts as a mismatch.
func (r *ReconciliationReport) AddDiff(d DiffResult) {
	r.Diffs = append(r.Diffs, d)
	r.TotalEntities++
	switch {
	case d.MissingInSSOT():
		r.MissingInSSOT++
	case d.IsExistence():
		r.MissingInNetwork++
	default:
		r.Mismatched++
	}
}

// AddFailure records a collection failure. Failures are not entities.
func (r *ReconciliationReport) AddFailure(f CollectionFailure) {
	r.Failures = append(r.Failures, f)
}

// Merge appends everything from other, preserving its diff order
func (r *ReconciliationReport) Merge(other *ReconciliationReport) {
	if other == nil {
		return
	}
	r.TotalEntities += other.TotalEntities
	r.Matched += other.Matched
	r.Mismatched += other.Mismatched
	r.MissingInSSOT += other.MissingInSSOT
	r.MissingInNetwork += other.MissingInNetwork
	r.Diffs = append(r.Diffs, other.Diffs...)
	r.Failures = append(r.Failures, other.Failures...)
}

// Validate checks the counter invariants
func (r *ReconciliationReport) Validate() error {
	sum := r.Matched + r.Mismatched + r.MissingInSSOT + r.MissingInNetwork
	if sum != r.TotalEntities {
		return fmt.Errorf("counter mismatch: matched+mismatched+missing = %d, total_entities = %d", sum, r.TotalEntities)
	}
	nonMatch := r.Mismatched + r.MissingInSSOT + r.MissingInNetwork
	if len(r.Diffs) != nonMatch {
		return fmt.Errorf("diff count mismatch: %d diffs for %d non-matching entities", len(r.Diffs), nonMatch)
	}
	return nil
}

// SummaryByType tallies diffs per entity type
func (r *ReconciliationReport) SummaryByType() map[string]int {
	out := make(map[string]int)
	for _, d := range r.Diffs {
		out[string(d.EntityType)]++
	}
	return out
}

// SummaryBySeverity tallies diffs per severity
func (r *ReconciliationReport) SummaryBySeverity() map[string]int {
	out := make(map[string]int)
	for _, d := range r.Diffs {
		out[string(d.Severity)]++
	}
	return out
}

// ToDict renders the report as a plain map suitable for JSON or YAML encoding
func (r *ReconciliationReport) ToDict() map[string]any {
	diffs := make([]map[string]any, 0, len(r.Diffs))
	for _, d := range r.Diffs {
		entry := map[string]any{
			"entity_type":      string(d.EntityType),
			"device":           d.Device,
			"field":            d.Field,
			"network_value":    d.NetworkValue,
			"ssot_value":       d.SSOTValue,
			"severity":         string(d.Severity),
			"source":           string(d.Source),
			"auto_correctable": d.AutoCorrectable,
		}
		if d.SSOTID > 0 {
			entry["ssot_id"] = d.SSOTID
		}
		if d.SSOTEndpoint != "" {
			entry["ssot_endpoint"] = d.SSOTEndpoint
		}
		if len(d.AdditionalContext) > 0 {
			entry["additional_context"] = d.AdditionalContext
		}
		diffs = append(diffs, entry)
	}

	failures := make([]map[string]any, 0, len(r.Failures))
	for _, f := range r.Failures {
		failures = append(failures, map[string]any{
			"device":      f.Device,
			"entity_type": string(f.EntityType),
			"side":        string(f.Side),
			"error":       f.Error,
		})
	}

	scope := r.DeviceScope
	if scope == nil {
		scope = []string{}
	}

	return map[string]any{
		"run_id":              r.RunID,
		"timestamp":           r.Timestamp.Format(time.RFC3339),
		"device_scope":        scope,
		"total_entities":      r.TotalEntities,
		"matched":             r.Matched,
		"mismatched":          r.Mismatched,
		"missing_in_ssot":     r.MissingInSSOT,
		"missing_in_network":  r.MissingInNetwork,
		"summary_by_type":     r.SummaryByType(),
		"summary_by_severity": r.SummaryBySeverity(),
		"diffs":               diffs,
		"collection_failures": failures,
	}
}

// ToMarkdown renders a deterministic operator-facing report
func (r *ReconciliationReport) ToMarkdown() string {
	var b strings.Builder

	b.WriteString("# Network Reconciliation Report\n\n")
	fmt.Fprintf(&b, "- **Run**: %s\n", r.RunID)
	fmt.Fprintf(&b, "- **Timestamp**: %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Devices**: %s\n", strings.Join(r.DeviceScope, ", "))
	fmt.Fprintf(&b, "- **Total Entities**: %d\n", r.TotalEntities)
	fmt.Fprintf(&b, "- **Matched**: %d\n", r.Matched)
	fmt.Fprintf(&b, "- **Mismatched**: %d\n", r.Mismatched)
	fmt.Fprintf(&b, "- **Missing in SSOT**: %d\n", r.MissingInSSOT)
	fmt.Fprintf(&b, "- **Missing in Network**: %d\n\n", r.MissingInNetwork)

	if len(r.Diffs) > 0 {
		b.WriteString("## Summary\n\n")
		writeTally(&b, "Entity Type", r.SummaryByType())
		writeTally(&b, "Severity", r.SummaryBySeverity())
	}

	b.WriteString("## Matches\n\n")
	fmt.Fprintf(&b, "%d entities match the SSOT.\n\n", r.Matched)

	var mismatches, missingSSOT, missingNetwork []DiffResult
	for _, d := range r.Diffs {
		switch {
		case d.MissingInSSOT():
			missingSSOT = append(missingSSOT, d)
		case d.IsExistence():
			missingNetwork = append(missingNetwork, d)
		default:
			mismatches = append(mismatches, d)
		}
	}

	b.WriteString("## Mismatches\n\n")
	if len(mismatches) == 0 {
		b.WriteString("None.\n\n")
	} else {
		byDevice := groupByDevice(mismatches)
		for _, device := range sortedKeys(byDevice) {
			fmt.Fprintf(&b, "### %s\n\n", device)
			b.WriteString("| Field | Network | SSOT | Severity | Auto |\n")
			b.WriteString("|---|---|---|---|---|\n")
			diffs := byDevice[device]
			sort.SliceStable(diffs, func(i, j int) bool { return diffs[i].Field < diffs[j].Field })
			for _, d := range diffs {
				fmt.Fprintf(&b, "| %s | %v | %v | %s | %s |\n",
					d.Field, d.NetworkValue, d.SSOTValue, d.Severity, yesNo(d.AutoCorrectable))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Missing in SSOT\n\n")
	writeExistence(&b, missingSSOT, func(d DiffResult) any { return d.NetworkValue })

	b.WriteString("## Missing in Network\n\n")
	writeExistence(&b, missingNetwork, func(d DiffResult) any { return d.SSOTValue })

	if len(r.Failures) > 0 {
		b.WriteString("## Collection Failures\n\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "- **%s** %s (%s): %s\n", f.Device, f.EntityType, f.Side, f.Error)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeTally(b *strings.Builder, title string, tally map[string]int) {
	fmt.Fprintf(b, "| %s | Count |\n|---|---|\n", title)
	for _, k := range sortedKeys(tally) {
		fmt.Fprintf(b, "| %s | %d |\n", k, tally[k])
	}
	b.WriteString("\n")
}

func writeExistence(b *strings.Builder, diffs []DiffResult, key func(DiffResult) any) {
	if len(diffs) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, d := range diffs {
		fmt.Fprintf(b, "- **%s** %s `%v`\n", d.Device, d.EntityType, key(d))
	}
	b.WriteString("\n")
}

func groupByDevice(diffs []DiffResult) map[string][]DiffResult {
	out := make(map[string][]DiffResult)
	for _, d := range diffs {
		out[d.Device] = append(out[d.Device], d)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
