package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yourusername/netreconcile/internal/approval"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/policy"
	"github.com/yourusername/netreconcile/internal/report"
)

// NewReconcileCmd creates the reconcile command
func NewReconcileCmd(opts *rootOptions) *cobra.Command {
	var (
		reportPath      string
		devices         []string
		types           []string
		dryRun          bool
		autoCorrect     bool
		requireApproval bool
		interactive     bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply drift back to NetBox according to policy",
		Long: `Reconcile a comparison report against NetBox. The report is either loaded
with --report or produced by a fresh comparison of --devices.

Safe fields are written when --auto-correct is set. Fields that need approval
are asked for interactively with --interactive; otherwise they are recorded as
pending and picked up on a later run once "approvals approve" has been used.
Dry run is the default until disabled in config or with --dry-run=false.`,
		Example: `  netreconcile reconcile --devices R1 --auto-correct
  netreconcile reconcile --report r1.json --dry-run=false --auto-correct --require-approval`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportPath == "" && len(devices) == 0 {
				return fmt.Errorf("either --report or --devices must be specified")
			}
			format, err := opts.format()
			if err != nil {
				return err
			}

			c, err := opts.container(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			rc := c.GetConfig().Reconcile
			if cmd.Flags().Changed("dry-run") {
				rc.DryRun = dryRun
			}
			if cmd.Flags().Changed("auto-correct") {
				rc.AutoCorrect = autoCorrect
			}
			if cmd.Flags().Changed("require-approval") {
				rc.RequireApproval = requireApproval
			}

			var r *models.ReconciliationReport
			if reportPath != "" {
				if r, err = report.Load(reportPath); err != nil {
					return err
				}
			} else {
				entityTypes, err := resolveTypes(c.GetConfig(), types)
				if err != nil {
					return err
				}
				r = c.GetEngine().CompareAll(cmd.Context(), devices, entityTypes)
			}

			channel := approval.StoreChannel(c.GetApprovalStore())
			if interactive {
				channel = approval.Prompt(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			if rc.RequireApproval {
				c.GetLogger().Info("%s", policy.ApprovalSummary(c.GetPolicy(), r.Diffs))
			}

			rec := c.NewReconciler(rc.DryRun, channel)
			results := rec.Reconcile(cmd.Context(), r, rc.AutoCorrect, rc.RequireApproval)
			stats := rec.Stats()

			out, err := report.FormatResults(format, results, stats)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)

			if n := stats[models.ActionError]; n > 0 {
				return fmt.Errorf("%d of %d diff(s) failed to reconcile", n, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Reconcile a report saved by compare --save")
	cmd.Flags().StringSliceVarP(&devices, "devices", "d", nil, "Compare these devices first (comma separated)")
	cmd.Flags().StringSliceVarP(&types, "types", "t", nil, "Entity types when comparing (default: engine.entity_types or all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Simulate writes (overrides reconcile.dry_run)")
	cmd.Flags().BoolVar(&autoCorrect, "auto-correct", false, "Write auto-correctable fields (overrides reconcile.auto_correct)")
	cmd.Flags().BoolVar(&requireApproval, "require-approval", true, "Gate sensitive fields on approval (overrides reconcile.require_approval)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Ask for approvals on the terminal")

	cmd.MarkFlagsMutuallyExclusive("report", "devices")

	return cmd
}
