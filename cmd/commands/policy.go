package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yourusername/netreconcile/internal/config"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/policy"
	"github.com/yourusername/netreconcile/internal/report"
	"gopkg.in/yaml.v3"
)

// NewPolicyCmd creates the policy command
func NewPolicyCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show the effective reconciliation policy",
		Long: `Show which fields are auto-corrected, which need approval and the severity
of each, per entity type. Without --file the policy.file setting is used; with
neither the built-in defaults are shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				if cfg, err := config.Load(opts.configFile); err == nil {
					file = cfg.Policy.File
				}
			}

			p := policy.Default()
			if file != "" {
				loaded, err := policy.LoadFile(file)
				if err != nil {
					return err
				}
				p = loaded
			}
			return printPolicy(cmd, report.FormatType(opts.outputFmt), p)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "HCL policy file")

	return cmd
}

type policyView struct {
	AutoCorrect     []string          `json:"auto_correct" yaml:"auto_correct"`
	RequireApproval []string          `json:"require_approval" yaml:"require_approval"`
	Severity        map[string]string `json:"severity" yaml:"severity"`
}

func printPolicy(cmd *cobra.Command, format report.FormatType, p *policy.Policy) error {
	views := map[string]policyView{}
	for _, et := range models.AllEntityTypes() {
		sev := map[string]string{}
		for field, s := range p.SeverityOverrides(et) {
			sev[field] = string(s)
		}
		views[string(et)] = policyView{
			AutoCorrect:     p.AutoCorrectFields(et),
			RequireApproval: p.ApprovalFields(et),
			Severity:        sev,
		}
	}

	out := cmd.OutOrStdout()
	switch format {
	case report.FormatJSON:
		data, err := json.MarshalIndent(map[string]any{"exclusive": p.Exclusive, "entities": views}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal policy: %v", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	case report.FormatYAML:
		data, err := yaml.Marshal(map[string]any{"exclusive": p.Exclusive, "entities": views})
		if err != nil {
			return fmt.Errorf("failed to marshal policy: %v", err)
		}
		fmt.Fprint(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Exclusive: %t\n", p.Exclusive)
	for _, et := range models.AllEntityTypes() {
		v := views[string(et)]
		fmt.Fprintf(out, "\n[%s]\n", et)
		fmt.Fprintf(out, "  auto_correct:     %s\n", listOrNone(v.AutoCorrect))
		fmt.Fprintf(out, "  require_approval: %s\n", listOrNone(v.RequireApproval))

		fields := make([]string, 0, len(v.Severity))
		for f := range v.Severity {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		pairs := make([]string, 0, len(fields))
		for _, f := range fields {
			pairs = append(pairs, f+"="+v.Severity[f])
		}
		fmt.Fprintf(out, "  severity:         %s\n", listOrNone(pairs))
	}
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
