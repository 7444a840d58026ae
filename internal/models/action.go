package models

// ReconcileAction is the terminal classification of how one diff was handled
type ReconcileAction string

const (
	ActionAutoCorrected   ReconcileAction = "auto_corrected"
	ActionApproved        ReconcileAction = "approved"
	ActionRejected        ReconcileAction = "rejected"
	ActionPendingApproval ReconcileAction = "pending_approval"
	ActionReportOnly      ReconcileAction = "report_only"
	ActionSkipped         ReconcileAction = "skipped"
	ActionError           ReconcileAction = "error"
)

// AllActions lists every action in a fixed display order
func AllActions() []ReconcileAction {
	return []ReconcileAction{
		ActionAutoCorrected,
		ActionApproved,
		ActionRejected,
		ActionPendingApproval,
		ActionReportOnly,
		ActionSkipped,
		ActionError,
	}
}

// ReconcileResult pairs a diff with the action taken for it
type ReconcileResult struct {
	Diff         DiffResult      `json:"diff" yaml:"diff"`
	Action       ReconcileAction `json:"action" yaml:"action"`
	Success      bool            `json:"success" yaml:"success"`
	Message      string          `json:"message" yaml:"message"`
	SSOTResponse map[string]any  `json:"ssot_response,omitempty" yaml:"ssot_response,omitempty"`
}
