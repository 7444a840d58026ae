// Package policy classifies diffs as safe to auto-correct, approval gated,
// or neither. Classification is total: an unknown field is neither safe nor
// approval gated and falls through to report-only.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yourusername/netreconcile/internal/models"
)

type fieldSet map[string]bool

// Policy holds per-entity allow-lists and severity assignments
type Policy struct {
	// Exclusive removes approval gated fields from the auto-correct set
	Exclusive bool

	autoCorrect map[models.EntityType]fieldSet
	approval    map[models.EntityType]fieldSet
	severity    map[models.EntityType]map[string]models.DiffSeverity
}

// Default returns the built-in policy. Only bookkeeping fields that cannot
// change reachability are auto-correctable.
func Default() *Policy {
	return &Policy{
		autoCorrect: map[models.EntityType]fieldSet{
			models.EntityInterface: {"mtu": true, "description": true},
			models.EntityDevice:    {"software_version": true, "serial": true},
		},
		approval: map[models.EntityType]fieldSet{
			models.EntityInterface: {"enabled": true, "mode": true, "lag": true},
			models.EntityIPAddress: {"interface": true, "vrf": true},
		},
		severity: map[models.EntityType]map[string]models.DiffSeverity{
			models.EntityInterface: {
				"enabled": models.SeverityWarning,
				"mode":    models.SeverityWarning,
				"lag":     models.SeverityWarning,
			},
			models.EntityIPAddress: {
				"interface": models.SeverityWarning,
				"vrf":       models.SeverityCritical,
			},
		},
	}
}

var defaultPolicy = Default()

// IsSafeAutoCorrect reports whether the diff may be written back without
// approval. Existence diffs are never safe.
func (p *Policy) IsSafeAutoCorrect(d models.DiffResult) bool {
	if d.IsExistence() {
		return false
	}
	attr := d.Attribute()
	if !p.autoCorrect[d.EntityType][attr] {
		return false
	}
	if p.Exclusive && p.approval[d.EntityType][attr] {
		return false
	}
	return true
}

// RequiresApproval reports whether applying the diff needs a human decision.
// Every existence diff does.
func (p *Policy) RequiresApproval(d models.DiffResult) bool {
	if d.IsExistence() {
		return true
	}
	return p.approval[d.EntityType][d.Attribute()]
}

// Severity returns the static severity for a field
func (p *Policy) Severity(et models.EntityType, field string) models.DiffSeverity {
	if field == models.FieldExistence {
		return models.SeverityWarning
	}
	if sev, ok := p.severity[et][models.FieldName(field)]; ok {
		return sev
	}
	return models.SeverityInfo
}

// Classify fills in severity and auto_correctable for a freshly built diff
func (p *Policy) Classify(d models.DiffResult) models.DiffResult {
	d.Severity = p.Severity(d.EntityType, d.Field)
	d.AutoCorrectable = p.IsSafeAutoCorrect(d)
	return d
}

// AutoCorrectFields lists the auto-correctable fields for an entity type
func (p *Policy) AutoCorrectFields(et models.EntityType) []string {
	return sortedFields(p.autoCorrect[et])
}

// ApprovalFields lists the approval gated fields for an entity type
func (p *Policy) ApprovalFields(et models.EntityType) []string {
	return sortedFields(p.approval[et])
}

// SeverityOverrides returns the non-INFO severities for an entity type
func (p *Policy) SeverityOverrides(et models.EntityType) map[string]models.DiffSeverity {
	out := make(map[string]models.DiffSeverity, len(p.severity[et]))
	for k, v := range p.severity[et] {
		out[k] = v
	}
	return out
}

// IsSafeAutoCorrect applies the default policy
func IsSafeAutoCorrect(d models.DiffResult) bool {
	return defaultPolicy.IsSafeAutoCorrect(d)
}

// RequiresApproval applies the default policy
func RequiresApproval(d models.DiffResult) bool {
	return defaultPolicy.RequiresApproval(d)
}

// ApprovalPrompt renders the text shown to an approver. Output depends only
// on the diff, context keys are emitted in sorted order.
func ApprovalPrompt(d models.DiffResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Approval required: %s change on %s\n", d.EntityType, d.Device)
	fmt.Fprintf(&b, "  Field:    %s\n", d.Field)
	fmt.Fprintf(&b, "  SSOT:     %v\n", d.SSOTValue)
	fmt.Fprintf(&b, "  Network:  %v\n", d.NetworkValue)
	fmt.Fprintf(&b, "  Severity: %s\n", d.Severity)
	if d.Source != "" {
		fmt.Fprintf(&b, "  Source:   %s\n", d.Source)
	}
	if len(d.AdditionalContext) > 0 {
		keys := make([]string, 0, len(d.AdditionalContext))
		for k := range d.AdditionalContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("  Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "    %s: %v\n", k, d.AdditionalContext[k])
		}
	}
	fmt.Fprintf(&b, "Update SSOT %s to %v?", d.Attribute(), d.NetworkValue)
	return b.String()
}

// ApprovalSummary counts approval gated diffs per device
func ApprovalSummary(p *Policy, diffs []models.DiffResult) string {
	if p == nil {
		p = defaultPolicy
	}
	counts := map[string]int{}
	total := 0
	for _, d := range diffs {
		if d.IsExistence() || !p.RequiresApproval(d) {
			continue
		}
		counts[d.Device]++
		total++
	}
	if total == 0 {
		return "No changes require approval."
	}
	devices := make([]string, 0, len(counts))
	for dev := range counts {
		devices = append(devices, dev)
	}
	sort.Strings(devices)

	var b strings.Builder
	fmt.Fprintf(&b, "%d change(s) require approval:", total)
	for _, dev := range devices {
		fmt.Fprintf(&b, "\n  %s: %d", dev, counts[dev])
	}
	return b.String()
}

func sortedFields(s fieldSet) []string {
	out := make([]string, 0, len(s))
	for k, ok := range s {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
