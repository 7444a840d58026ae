package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yourusername/netreconcile/internal/config"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/report"
)

// NewCompareCmd creates the compare command
func NewCompareCmd(opts *rootOptions) *cobra.Command {
	var (
		devices  []string
		types    []string
		savePath string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare live network state with NetBox",
		Long: `Compare live network state with NetBox for the given devices and print a
reconciliation report. Nothing is written to NetBox.

Use --save to keep the report for a later "reconcile --report" run.`,
		Example: `  netreconcile compare --devices R1,R2
  netreconcile compare --devices R1 --types interface -o markdown --save r1.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}

			c, err := opts.container(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			entityTypes, err := resolveTypes(c.GetConfig(), types)
			if err != nil {
				return err
			}

			r := c.GetEngine().CompareAll(cmd.Context(), devices, entityTypes)
			if savePath != "" {
				if err := report.Save(savePath, r); err != nil {
					return err
				}
				c.GetLogger().Info("Report saved to %s", savePath)
			}
			return printReport(cmd, format, r)
		},
	}

	cmd.Flags().StringSliceVarP(&devices, "devices", "d", nil, "Devices to compare (comma separated)")
	cmd.Flags().StringSliceVarP(&types, "types", "t", nil, "Entity types: interface, device, ip_address (default: engine.entity_types or all)")
	cmd.Flags().StringVar(&savePath, "save", "", "Save the report as JSON or YAML (by extension)")

	_ = cmd.MarkFlagRequired("devices")

	return cmd
}

// resolveTypes prefers the --types flag over engine.entity_types
func resolveTypes(cfg *config.Config, flagTypes []string) ([]models.EntityType, error) {
	if len(flagTypes) == 0 {
		return cfg.EntityTypes()
	}
	out := make([]models.EntityType, 0, len(flagTypes))
	for _, name := range flagTypes {
		et, err := models.ParseEntityType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, nil
}

func printReport(cmd *cobra.Command, format report.FormatType, r *models.ReconciliationReport) error {
	formatter, err := report.NewFormatter(format)
	if err != nil {
		return err
	}
	out, err := formatter.Format(r)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
