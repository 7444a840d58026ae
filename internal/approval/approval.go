// Package approval provides approval channels for the reconciler and the
// stores that let a pending decision survive across runs.
package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/policy"
)

var (
	// ErrDecisionPending means the diff was recorded and awaits a decision
	ErrDecisionPending = errors.New("approval decision pending")
	// ErrNotFound is returned when deciding a key that is not pending
	ErrNotFound = errors.New("pending approval not found")
)

// Func decides a single diff. It returns true to approve the write.
type Func func(ctx context.Context, d models.DiffResult) (bool, error)

// Key is the stable identity of a diff. It includes the proposed value, so a
// decision only applies while the network keeps reporting that value.
func Key(d models.DiffResult) string {
	return fmt.Sprintf("%s|%s|%s|%v", d.EntityType, d.Device, d.Field, d.NetworkValue)
}

// Pending is a diff waiting for an operator decision
type Pending struct {
	Key         string            `json:"key" yaml:"key"`
	Diff        models.DiffResult `json:"diff" yaml:"diff"`
	RequestedAt time.Time         `json:"requested_at" yaml:"requested_at"`
}

// Store persists pending approvals and the decisions taken on them
type Store interface {
	// RecordPending stores d as pending. It reports false when the diff
	// was already pending.
	RecordPending(ctx context.Context, d models.DiffResult) (bool, error)
	ListPending(ctx context.Context) ([]Pending, error)
	// Decide resolves a pending key and returns ErrNotFound for unknown keys
	Decide(ctx context.Context, key string, approve bool) error
	// Decision returns the recorded decision; found is false when none exists
	Decision(ctx context.Context, key string) (approved bool, found bool, err error)
	// Forget drops both the pending entry and any decision for key
	Forget(ctx context.Context, key string) error
}

// StoreChannel answers from recorded decisions. A diff without one is
// recorded as pending and ErrDecisionPending is returned.
func StoreChannel(store Store) Func {
	return func(ctx context.Context, d models.DiffResult) (bool, error) {
		key := Key(d)
		approved, found, err := store.Decision(ctx, key)
		if err != nil {
			return false, fmt.Errorf("read decision %s: %w", key, err)
		}
		if found {
			return approved, nil
		}
		if _, err := store.RecordPending(ctx, d); err != nil {
			return false, fmt.Errorf("record pending %s: %w", key, err)
		}
		return false, ErrDecisionPending
	}
}

// Prompt asks on out and reads a yes/no answer from in. An empty answer
// rejects.
func Prompt(in io.Reader, out io.Writer) Func {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, d models.DiffResult) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "\n%s [y/N]: ", policy.ApprovalPrompt(d))
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return false, fmt.Errorf("read approval answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
