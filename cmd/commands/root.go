package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/yourusername/netreconcile/internal/app"
	"github.com/yourusername/netreconcile/internal/config"
	"github.com/yourusername/netreconcile/internal/logger"
	"github.com/yourusername/netreconcile/internal/report"
)

// Build metadata, set with -ldflags "-X .../cmd/commands.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func buildVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s)", Version, Commit, Date, runtime.Version())
}

// rootOptions holds the global flags
type rootOptions struct {
	configFile string
	logLevel   string
	outputFmt  string
}

// NewRootCmd creates a new root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "netreconcile",
		Short: "Reconcile live network state against the NetBox source of truth",
		Long: `netreconcile compares interfaces, devices and IP addresses collected from
the network (SuzieQ, CLI/OpenConfig snapshots or EC2) with what NetBox records.

Every difference is classified by policy as safe to auto-correct, requiring
human approval, or report only. The reconcile command writes approved and
auto-correctable values back to NetBox one field at a time.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Config file (default: ./netreconcile.yaml or ~/.netreconcile/netreconcile.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")
	rootCmd.PersistentFlags().StringVarP(&opts.outputFmt, "output", "o", "text", "Output format (text, json, yaml, markdown)")

	rootCmd.AddCommand(NewCompareCmd(opts))
	rootCmd.AddCommand(NewReconcileCmd(opts))
	rootCmd.AddCommand(NewApprovalsCmd(opts))
	rootCmd.AddCommand(NewPolicyCmd(opts))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			root := cmd.Root()
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", root.Name(), root.Version)
		},
	})

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies global flag overrides
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// container builds the application container from config and flags
func (o *rootOptions) container(ctx context.Context, cmd *cobra.Command) (*app.Container, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	return app.NewContainer(ctx, cfg, app.WithLogger(logger.NewLogger(lc)))
}

func (o *rootOptions) format() (report.FormatType, error) {
	f := report.FormatType(o.outputFmt)
	if _, err := report.NewFormatter(f); err != nil {
		return "", err
	}
	return f, nil
}
