package models

import (
	"fmt"
	"strings"
)

// EntityType identifies the kind of network object being reconciled
type EntityType string

const (
	// EntityInterface is a physical or logical interface on a device
	EntityInterface EntityType = "interface"
	// EntityDevice is the device record itself
	EntityDevice EntityType = "device"
	// EntityIPAddress is an address assignment, keyed by address/prefix
	EntityIPAddress EntityType = "ip_address"
)

// AllEntityTypes returns every supported entity type in compare order
func AllEntityTypes() []EntityType {
	return []EntityType{EntityInterface, EntityDevice, EntityIPAddress}
}

// ParseEntityType converts a user supplied name into an EntityType
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interface", "interfaces":
		return EntityInterface, nil
	case "device", "devices":
		return EntityDevice, nil
	case "ip_address", "ip", "address", "addresses":
		return EntityIPAddress, nil
	default:
		return "", fmt.Errorf("unknown entity type: %s", s)
	}
}

// DiffSource names the collector that produced the network side of a diff
type DiffSource string

const (
	SourceSuzieQ     DiffSource = "suzieq"
	SourceCLI        DiffSource = "cli"
	SourceOpenConfig DiffSource = "openconfig"
	SourceEC2        DiffSource = "ec2"
)

// ParseDiffSource converts a configured name into a DiffSource
func ParseDiffSource(s string) (DiffSource, error) {
	switch DiffSource(strings.ToLower(strings.TrimSpace(s))) {
	case SourceSuzieQ:
		return SourceSuzieQ, nil
	case SourceCLI:
		return SourceCLI, nil
	case SourceOpenConfig:
		return SourceOpenConfig, nil
	case SourceEC2:
		return SourceEC2, nil
	default:
		return "", fmt.Errorf("unknown diff source: %s", s)
	}
}

// DiffSeverity is an ordered classification of how risky a drift is
type DiffSeverity string

const (
	SeverityInfo     DiffSeverity = "INFO"
	SeverityWarning  DiffSeverity = "WARNING"
	SeverityCritical DiffSeverity = "CRITICAL"
)

// Rank orders severities so INFO < WARNING < CRITICAL
func (s DiffSeverity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return -1
	}
}

// ParseSeverity accepts INFO, WARNING or CRITICAL in any case
func ParseSeverity(s string) (DiffSeverity, error) {
	sev := DiffSeverity(strings.ToUpper(strings.TrimSpace(s)))
	if sev.Rank() < 0 {
		return "", fmt.Errorf("unknown severity: %s", s)
	}
	return sev, nil
}

const (
	// FieldExistence is the field sentinel for presence/absence diffs
	FieldExistence = "existence"
	// MissingValue marks the absent side of an existence diff
	MissingValue = "missing"
)

// DiffResult is one discrepancy between live state and the SSOT
type DiffResult struct {
	EntityType        EntityType     `json:"entity_type" yaml:"entity_type"`
	Device            string         `json:"device" yaml:"device"`
	Field             string         `json:"field" yaml:"field"`
	NetworkValue      any            `json:"network_value" yaml:"network_value"`
	SSOTValue         any            `json:"ssot_value" yaml:"ssot_value"`
	Severity          DiffSeverity   `json:"severity" yaml:"severity"`
	Source            DiffSource     `json:"source" yaml:"source"`
	AutoCorrectable   bool           `json:"auto_correctable" yaml:"auto_correctable"`
	SSOTID            int            `json:"ssot_id,omitempty" yaml:"ssot_id,omitempty"`
	SSOTEndpoint      string         `json:"ssot_endpoint,omitempty" yaml:"ssot_endpoint,omitempty"`
	AdditionalContext map[string]any `json:"additional_context,omitempty" yaml:"additional_context,omitempty"`
}

// IsExistence reports whether the diff is about presence rather than a field value
func (d DiffResult) IsExistence() bool {
	return d.Field == FieldExistence
}

// HasWriteTarget reports whether the diff carries usable SSOT write coordinates
func (d DiffResult) HasWriteTarget() bool {
	return d.SSOTID > 0 && d.SSOTEndpoint != ""
}

// Attribute returns the bare attribute name, i.e. the text after the last dot.
func (d DiffResult) Attribute() string {
	return FieldName(d.Field)
}

// MissingInSSOT reports whether an existence diff describes an entity the SSOT lacks
func (d DiffResult) MissingInSSOT() bool {
	return d.IsExistence() && isMissing(d.SSOTValue)
}

// FieldName strips a dotted diff path down to its attribute name.
func FieldName(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		return field[i+1:]
	}
	return field
}

// FieldPath joins an entity key and attribute into a diff path. Device
// attributes are not prefixed since the device is already the diff's identity.
func FieldPath(entityType EntityType, key, attr string) string {
	if entityType == EntityDevice || key == "" {
		return attr
	}
	return key + "." + attr
}

func isMissing(v any) bool {
	s, ok := v.(string)
	return ok && s == MissingValue
}
