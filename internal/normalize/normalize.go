// Package normalize turns source specific listings into canonical entity
// maps. Every (source, entity type) pair has its own parser so a renamed or
// missing upstream field shows up as an absent field rather than false drift.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/netreconcile/internal/models"
)

// ErrUnsupported is returned when a source has no parser for an entity type
var ErrUnsupported = errors.New("unsupported source/entity combination")

// Record is one decoded upstream row
type Record = map[string]any

type parseFunc func(device string, records []Record) models.EntityMap

var liveParsers = map[models.DiffSource]map[models.EntityType]parseFunc{
	models.SourceSuzieQ: {
		models.EntityInterface: suzieqInterfaces,
		models.EntityDevice:    suzieqDevices,
		models.EntityIPAddress: suzieqAddresses,
	},
	models.SourceCLI: {
		models.EntityInterface: cliInterfaces,
		models.EntityDevice:    cliDevices,
		models.EntityIPAddress: cliAddresses,
	},
	models.SourceOpenConfig: {
		models.EntityInterface: openconfigInterfaces,
		models.EntityIPAddress: openconfigAddresses,
	},
	models.SourceEC2: {
		models.EntityInterface: ec2Interfaces,
		models.EntityDevice:    ec2Devices,
	},
}

var ssotParsers = map[models.EntityType]parseFunc{
	models.EntityInterface: netboxInterfaces,
	models.EntityDevice:    netboxDevices,
	models.EntityIPAddress: netboxAddresses,
}

// Supports reports whether a live source can produce the entity type
func Supports(source models.DiffSource, et models.EntityType) bool {
	_, ok := liveParsers[source][et]
	return ok
}

// Live normalizes a live-side listing for one device
func Live(source models.DiffSource, et models.EntityType, device string, raw any) (models.EntityMap, error) {
	parse, ok := liveParsers[source][et]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, source, et)
	}
	records, err := Records(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s %s: %w", source, et, err)
	}
	return parse(device, records), nil
}

// SSOT normalizes a NetBox listing for one device
func SSOT(et models.EntityType, device string, raw any) (models.EntityMap, error) {
	parse, ok := ssotParsers[et]
	if !ok {
		return nil, fmt.Errorf("%w: ssot/%s", ErrUnsupported, et)
	}
	records, err := Records(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize ssot %s: %w", et, err)
	}
	return parse(device, records), nil
}

var envelopeKeys = []string{"data", "results", "records"}

// Records unwraps a listing into rows. It accepts a bare list, a single
// object, or an envelope holding the list under data, results or records.
// Rows that are not objects are dropped.
func Records(raw any) ([]Record, error) {
	switch v := raw.(type) {
	case nil:
		return []Record{}, nil
	case []Record:
		return v, nil
	case []any:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			if rec, ok := item.(Record); ok {
				out = append(out, rec)
			}
		}
		return out, nil
	case Record:
		for _, k := range envelopeKeys {
			if inner, ok := v[k]; ok {
				return Records(inner)
			}
		}
		return []Record{v}, nil
	default:
		return nil, fmt.Errorf("unexpected response shape %T", raw)
	}
}

// lookup walks a dotted path through nested objects
func lookup(rec Record, path string) any {
	var cur any = rec
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(Record)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func str(rec Record, path string) string {
	v, ok := lookup(rec, path).(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func first(rec Record, path string) any {
	switch v := lookup(rec, path).(type) {
	case []any:
		if len(v) == 0 {
			return nil
		}
		return v[0]
	case []string:
		if len(v) == 0 {
			return nil
		}
		return v[0]
	default:
		return v
	}
}

// belongs is true when the record names no device or names the one asked for
func belongs(rec Record, device string, paths ...string) bool {
	for _, p := range paths {
		if name := str(rec, p); name != "" {
			return strings.EqualFold(name, device)
		}
	}
	return true
}

func newEntity() models.Entity {
	return models.Entity{Fields: map[string]any{}}
}
