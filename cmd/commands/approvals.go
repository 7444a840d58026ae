package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourusername/netreconcile/internal/approval"
	"github.com/yourusername/netreconcile/internal/report"
	"gopkg.in/yaml.v3"
)

// NewApprovalsCmd creates the approvals command group
func NewApprovalsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "List and decide pending approvals",
		Long: `Pending approvals are recorded by reconcile runs that are not interactive.
Decisions are picked up by the next reconcile run. With redis enabled they
survive restarts and expire after redis.decision_ttl.`,
	}

	cmd.AddCommand(newApprovalsListCmd(opts))
	cmd.AddCommand(newDecideCmd(opts, "approve", "approved", true))
	cmd.AddCommand(newDecideCmd(opts, "reject", "rejected", false))
	cmd.AddCommand(newForgetCmd(opts))

	return cmd
}

func newApprovalsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending approvals",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			if !c.GetConfig().Redis.Enabled {
				c.GetLogger().Warn("redis is disabled, approvals only live for this process")
			}

			pending, err := c.GetApprovalStore().ListPending(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch report.FormatType(opts.outputFmt) {
			case report.FormatJSON:
				data, err := json.MarshalIndent(pending, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal approvals: %v", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			case report.FormatYAML:
				data, err := yaml.Marshal(pending)
				if err != nil {
					return fmt.Errorf("failed to marshal approvals: %v", err)
				}
				fmt.Fprint(out, string(data))
				return nil
			}

			if len(pending) == 0 {
				fmt.Fprintln(out, "No pending approvals.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSSOT\tNETWORK\tSEVERITY\tREQUESTED")
			for _, p := range pending {
				fmt.Fprintf(w, "%s\t%v\t%v\t%s\t%s\n",
					p.Key,
					p.Diff.SSOTValue,
					p.Diff.NetworkValue,
					p.Diff.Severity,
					p.RequestedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return w.Flush()
		},
	}
}

func newDecideCmd(opts *rootOptions, verb, past string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <key>",
		Short: fmt.Sprintf("%s a pending approval", titleCase(verb)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.GetApprovalStore().Decide(cmd.Context(), args[0], approve); err != nil {
				if errors.Is(err, approval.ErrNotFound) {
					return fmt.Errorf("no pending approval with key %q", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", past, args[0])
			return nil
		},
	}
}

func newForgetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <key>",
		Short: "Drop a pending approval or a recorded decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.GetApprovalStore().Forget(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", args[0])
			return nil
		},
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
