// Package detector compares normalized live state against the SSOT and
// builds a ReconciliationReport of every drift it finds.
package detector

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/yourusername/netreconcile/internal/logger"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/normalize"
	"github.com/yourusername/netreconcile/internal/policy"
	"golang.org/x/sync/errgroup"
)

// Collector produces the live side of a comparison
type Collector interface {
	Source() models.DiffSource
	Collect(ctx context.Context, device string, et models.EntityType) (any, error)
}

// Inventory produces the SSOT side of a comparison
type Inventory interface {
	Fetch(ctx context.Context, device string, et models.EntityType) (any, error)
}

// Engine runs identity keyed comparisons over (device, entity type) pairs
type Engine struct {
	live    Collector
	ssot    Inventory
	policy  *policy.Policy
	workers int
	logger  *logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithPolicy sets the classifier used for new diffs
func WithPolicy(p *policy.Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithWorkers bounds how many pairs are compared concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a comparison engine
func NewEngine(live Collector, ssot Inventory, opts ...Option) *Engine {
	e := &Engine{
		live:    live,
		ssot:    ssot,
		policy:  policy.Default(),
		workers: 4,
		logger:  logger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CompareAll compares every device against every entity type; an empty
// entityTypes means all types. Pairs run on a bounded worker pool but are
// merged in input order, so the diff list is deterministic. A failing pair
// is recorded as a collection failure and never aborts the run.
func (e *Engine) CompareAll(ctx context.Context, devices []string, entityTypes []models.EntityType) *models.ReconciliationReport {
	if len(entityTypes) == 0 {
		entityTypes = models.AllEntityTypes()
	}
	report := models.NewReport(devices)

	type pair struct {
		device string
		et     models.EntityType
	}
	var pairs []pair
	for _, d := range devices {
		for _, et := range entityTypes {
			pairs = append(pairs, pair{d, et})
		}
	}

	partials := make([]*models.ReconciliationReport, len(pairs))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, p := range pairs {
		if ctx.Err() != nil {
			e.logger.Warn("Comparison cancelled, %d of %d pairs scheduled", i, len(pairs))
			break
		}
		i, p := i, p
		g.Go(func() error {
			partials[i] = e.ComparePair(ctx, p.device, p.et)
			return nil
		})
	}
	_ = g.Wait()

	for _, partial := range partials {
		report.Merge(partial)
	}

	e.logger.Info("Compared %d device(s): %d entities, %d matched, %d mismatched, %d missing in SSOT, %d missing in network, %d failure(s)",
		len(devices), report.TotalEntities, report.Matched, report.Mismatched,
		report.MissingInSSOT, report.MissingInNetwork, len(report.Failures))
	return report
}

// ComparePair fetches and diffs one device/entity type pair. Both sides are
// fetched before anything is counted.
func (e *Engine) ComparePair(ctx context.Context, device string, et models.EntityType) *models.ReconciliationReport {
	partial := &models.ReconciliationReport{Diffs: []models.DiffResult{}}
	source := e.live.Source()
	log := e.logger.WithFields(map[string]interface{}{
		"device":      device,
		"entity_type": string(et),
	})

	fail := func(side models.Side, err error) *models.ReconciliationReport {
		log.Warn("Collection failed on %s side: %v", side, err)
		partial.AddFailure(models.CollectionFailure{
			Device:     device,
			EntityType: et,
			Side:       side,
			Error:      err.Error(),
		})
		return partial
	}

	if !normalize.Supports(source, et) {
		return fail(models.SideNetwork, fmt.Errorf("%w: %s/%s", normalize.ErrUnsupported, source, et))
	}

	liveRaw, err := e.live.Collect(ctx, device, et)
	if err != nil {
		return fail(models.SideNetwork, err)
	}
	live, err := normalize.Live(source, et, device, liveRaw)
	if err != nil {
		return fail(models.SideNetwork, err)
	}

	ssotRaw, err := e.ssot.Fetch(ctx, device, et)
	if err != nil {
		return fail(models.SideSSOT, err)
	}
	ssot, err := normalize.SSOT(et, device, ssotRaw)
	if err != nil {
		return fail(models.SideSSOT, err)
	}

	e.DiffEntities(device, et, source, live, ssot, partial)
	log.Debug("Compared %d live and %d SSOT entities", len(live), len(ssot))
	return partial
}

// DiffEntities runs the structural diff of two canonical entity maps and
// records the outcome on report
func (e *Engine) DiffEntities(device string, et models.EntityType, source models.DiffSource, live, ssot models.EntityMap, report *models.ReconciliationReport) {
	for _, key := range unionKeys(live, ssot) {
		l, inLive := live[key]
		s, inSSOT := ssot[key]

		switch {
		case inLive && !inSSOT:
			report.AddDiff(e.policy.Classify(models.DiffResult{
				EntityType:        et,
				Device:            device,
				Field:             models.FieldExistence,
				NetworkValue:      key,
				SSOTValue:         models.MissingValue,
				Source:            source,
				AdditionalContext: mergeContext(l.Context, nil),
			}))

		case inSSOT && !inLive:
			report.AddDiff(e.policy.Classify(models.DiffResult{
				EntityType:        et,
				Device:            device,
				Field:             models.FieldExistence,
				NetworkValue:      models.MissingValue,
				SSOTValue:         key,
				Source:            source,
				SSOTID:            s.ID,
				SSOTEndpoint:      s.Endpoint,
				AdditionalContext: mergeContext(s.Context, nil),
			}))

		default:
			matched := true
			for _, field := range sharedFields(l.Fields, s.Fields) {
				lv, sv := l.Fields[field], s.Fields[field]
				if valuesEqual(lv, sv) {
					continue
				}
				matched = false
				report.AddDiff(e.policy.Classify(models.DiffResult{
					EntityType:        et,
					Device:            device,
					Field:             models.FieldPath(et, key, field),
					NetworkValue:      lv,
					SSOTValue:         sv,
					Source:            source,
					SSOTID:            s.ID,
					SSOTEndpoint:      s.Endpoint,
					AdditionalContext: mergeContext(s.Context, l.Context),
				}))
			}
			if matched {
				report.AddMatch()
			}
		}
	}
}

func unionKeys(a, b models.EntityMap) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sharedFields returns the sorted fields reported by both sides
func sharedFields(a, b map[string]any) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func mergeContext(primary, secondary map[string]any) map[string]any {
	if len(primary) == 0 && len(secondary) == 0 {
		return nil
	}
	out := make(map[string]any, len(primary)+len(secondary))
	for k, v := range secondary {
		out[k] = v
	}
	for k, v := range primary {
		out[k] = v
	}
	return out
}

// valuesEqual compares numbers numerically, bools as bools and strings
// exactly. Values of different kinds are never equal.
func valuesEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
