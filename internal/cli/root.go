// Package cli implements the parishreg command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RootOptions holds the global flags shared by every command. Empty values
// leave the configuration file and environment in charge.
type RootOptions struct {
	ConfigPath  string
	Format      string
	Parish      string
	Storage     string
	DBPath      string
	CatalogPath string
	LogLevel    string
	MetricsFile string
	Trace       bool
	NoColor     bool
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the parishreg command tree.
func NewRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:   "parishreg",
		Short: "Parish sacramental register administration",
		Long: `parishreg keeps the baptism, confirmation and marriage registers of a parish.

Decrees of correction, replacement and reposition annul entries and seat new
ones in the supplementary book; legacy spreadsheets are reconciled before
import so that no locator is seated twice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return usageError{fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)}
			}
			if opts.NoColor {
				color.NoColor = true
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json)")
	flags.StringVarP(&opts.Parish, "parish", "p", "", "parish identifier")
	flags.StringVar(&opts.Storage, "storage", "", "storage driver (memory|sqlite|postgres)")
	flags.StringVar(&opts.DBPath, "db", "", "sqlite database path")
	flags.StringVar(&opts.CatalogPath, "catalog", "", "annulment concept catalog (YAML)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	flags.BoolVar(&opts.Trace, "trace", false, "write operation spans as JSON lines to stderr")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newDecreeCommand(opts))
	cmd.AddCommand(newLedgerCommand(opts))
	cmd.AddCommand(newRecordsCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newConceptsCommand(opts))
	return cmd, opts
}

// Execute runs the command tree with args and returns the process exit code.
// Failures are rendered in the selected output format.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, opts := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	out := newOutput(opts, stdout, stderr)
	out.fail(err)
	return ExitCode(err)
}
