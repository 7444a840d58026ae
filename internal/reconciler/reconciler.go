// Package reconciler applies a comparison report back to the SSOT. Each diff
// runs through a small dispatch state machine and ends in exactly one
// ReconcileAction.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yourusername/netreconcile/internal/approval"
	"github.com/yourusername/netreconcile/internal/logger"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/policy"
)

// Writer performs a single-field partial update on the SSOT
type Writer interface {
	PatchField(ctx context.Context, endpoint string, id int, attribute string, value any) (map[string]any, error)
}

// Reconciler dispatches diffs to write, approval or report-only outcomes
type Reconciler struct {
	writer  Writer
	dryRun  bool
	approve approval.Func
	policy  *policy.Policy
	logger  *logger.Logger
	statsMu sync.Mutex
	stats   map[models.ReconcileAction]int
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithDryRun simulates writes without calling the writer
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// WithApprovalChannel sets the callback consulted for approval gated diffs
func WithApprovalChannel(fn approval.Func) Option {
	return func(r *Reconciler) { r.approve = fn }
}

// WithPolicy sets the approval policy
func WithPolicy(p *policy.Policy) Option {
	return func(r *Reconciler) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithLogger sets the reconciler logger
func WithLogger(l *logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Reconciler. Dry run is on unless disabled.
func New(writer Writer, opts ...Option) *Reconciler {
	r := &Reconciler{
		writer: writer,
		dryRun: true,
		policy: policy.Default(),
		logger: logger.DefaultLogger,
		stats:  map[models.ReconcileAction]int{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DryRun reports whether writes are simulated
func (r *Reconciler) DryRun() bool {
	return r.dryRun
}

// Reconcile processes every diff in order and returns one result per diff.
// Per-diff failures are reported as ERROR results. Cancellation stops
// before the next diff; writes already made are kept.
func (r *Reconciler) Reconcile(ctx context.Context, report *models.ReconciliationReport, autoCorrect, requireApproval bool) []models.ReconcileResult {
	results := make([]models.ReconcileResult, 0, len(report.Diffs))
	for _, d := range report.Diffs {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Reconcile cancelled after %d of %d diffs: %v", len(results), len(report.Diffs), err)
			break
		}
		results = append(results, r.ReconcileDiff(ctx, d, autoCorrect, requireApproval))
	}
	r.logger.Info("Reconciled %d diff(s) (dry run: %t)", len(results), r.dryRun)
	return results
}

// ReconcileDiff runs the dispatch for a single diff
func (r *Reconciler) ReconcileDiff(ctx context.Context, d models.DiffResult, autoCorrect, requireApproval bool) models.ReconcileResult {
	res := r.dispatch(ctx, d, autoCorrect, requireApproval)
	r.record(res.Action)

	log := r.logger.WithFields(map[string]interface{}{
		"device": d.Device,
		"field":  d.Field,
		"action": string(res.Action),
	})
	if res.Action == models.ActionError {
		log.Error("%s", res.Message)
	} else {
		log.Debug("%s", res.Message)
	}
	return res
}

func (r *Reconciler) dispatch(ctx context.Context, d models.DiffResult, autoCorrect, requireApproval bool) models.ReconcileResult {
	if d.IsExistence() {
		return result(d, models.ActionReportOnly, true, "existence drift is reported only")
	}

	missingTarget := false
	if d.AutoCorrectable && autoCorrect {
		if r.dryRun || d.HasWriteTarget() {
			return r.apply(ctx, d, models.ActionAutoCorrected)
		}
		missingTarget = true
	}

	if r.policy.RequiresApproval(d) {
		if !requireApproval {
			return result(d, models.ActionSkipped, true, "approval required but approval gating not requested")
		}
		if r.approve == nil {
			return result(d, models.ActionPendingApproval, true, "awaiting approval")
		}
		approved, err := r.approve(ctx, d)
		switch {
		case errors.Is(err, approval.ErrDecisionPending):
			return result(d, models.ActionPendingApproval, true, fmt.Sprintf("awaiting approval (%s)", approval.Key(d)))
		case err != nil:
			return result(d, models.ActionError, false, fmt.Sprintf("approval channel failed: %v", err))
		case !approved:
			return result(d, models.ActionRejected, true, "change rejected by approver")
		}
		if !r.dryRun && !d.HasWriteTarget() {
			return result(d, models.ActionError, false, "approved but missing write coordinates")
		}
		return r.apply(ctx, d, models.ActionApproved)
	}

	if missingTarget {
		return result(d, models.ActionReportOnly, false, "auto-correctable but missing write coordinates")
	}
	return result(d, models.ActionReportOnly, true, "no action required by policy")
}

// apply writes (or simulates) the single differing attribute
func (r *Reconciler) apply(ctx context.Context, d models.DiffResult, action models.ReconcileAction) models.ReconcileResult {
	if r.dryRun {
		return result(d, action, true, fmt.Sprintf("[DRY RUN] would update %s from %v to %v", d.Field, d.SSOTValue, d.NetworkValue))
	}
	if r.writer == nil {
		return result(d, models.ActionError, false, "no SSOT writer configured")
	}

	resp, err := r.writer.PatchField(ctx, d.SSOTEndpoint, d.SSOTID, d.Attribute(), d.NetworkValue)
	if err != nil {
		return result(d, models.ActionError, false, fmt.Sprintf("update %s failed: %v", d.Field, err))
	}
	res := result(d, action, true, fmt.Sprintf("updated %s from %v to %v", d.Field, d.SSOTValue, d.NetworkValue))
	res.SSOTResponse = resp
	return res
}

func result(d models.DiffResult, action models.ReconcileAction, success bool, msg string) models.ReconcileResult {
	return models.ReconcileResult{Diff: d, Action: action, Success: success, Message: msg}
}

func (r *Reconciler) record(action models.ReconcileAction) {
	r.statsMu.Lock()
	r.stats[action]++
	r.statsMu.Unlock()
}

// Stats returns a copy of the per-action counters. Every action is present.
func (r *Reconciler) Stats() map[models.ReconcileAction]int {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	out := make(map[models.ReconcileAction]int, len(models.AllActions()))
	for _, a := range models.AllActions() {
		out[a] = r.stats[a]
	}
	return out
}

// ResetStats zeroes the counters
func (r *Reconciler) ResetStats() {
	r.statsMu.Lock()
	r.stats = map[models.ReconcileAction]int{}
	r.statsMu.Unlock()
}
