// Package cli implements the reportctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/report"
	"spill_report_service/internal/infra/bootstrap"
	"spill_report_service/internal/infra/export"

	"github.com/spf13/cobra"
)

// Opener builds the service graph for one command invocation.
type Opener func(ctx context.Context) (*bootstrap.Runtime, error)

type listFlags struct {
	limit  int
	offset int
	status string
	bucket string
	query  string
}

func (f listFlags) filter() (app.Filter, report.ListOptions, error) {
	if f.limit < 0 || f.offset < 0 {
		return app.Filter{}, report.ListOptions{}, fmt.Errorf("--limit and --offset must not be negative")
	}
	var filter app.Filter
	filter.Search = f.query
	if f.status != "" {
		st, err := report.ParseStatus(f.status)
		if err != nil {
			return app.Filter{}, report.ListOptions{}, err
		}
		filter.Status = st
	}
	if f.bucket != "" {
		b, err := report.ParseBucket(f.bucket)
		if err != nil {
			return app.Filter{}, report.ListOptions{}, err
		}
		filter.Bucket = b
	}
	return filter, report.ListOptions{Limit: f.limit, Offset: f.offset}, nil
}

func (f *listFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", defaultLimit, "maximum number of reports (0 for all)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "number of reports to skip")
	cmd.Flags().StringVar(&f.status, "status", "", "status label or code")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "active or closed")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "search location, contaminant or date")
}

// withRuntime opens the runtime, runs fn and closes the runtime.
func withRuntime(cmd *cobra.Command, open Opener, fn func(*bootstrap.Runtime) error) error {
	rt, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())
	return fn(rt)
}

// NewRootCommand assembles reportctl.
func NewRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Inspect and maintain spill reports",
		Long: `reportctl reads the configured report store directly.

Commands:
  list      List reports, newest first
  show      Show one report by its ENV number
  status    Change the status of a report
  stats     Dashboard counts for a year
  export    Write reports as xlsx or csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newListCommand(open),
		newShowCommand(open),
		newStatusCommand(open),
		newStatsCommand(open),
		newExportCommand(open),
	)
	return root
}

func newListCommand(open Opener) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, opts, err := flags.filter()
			if err != nil {
				return err
			}
			return withRuntime(cmd, open, func(rt *bootstrap.Runtime) error {
				list, err := rt.Dashboard.Search(cmd.Context(), filter, opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderReports(list, rt.Reports.Now()))
				return nil
			})
		},
	}
	flags.register(cmd, 20)
	return cmd
}

func findReport(ctx context.Context, rt *bootstrap.Runtime, number string) (report.Report, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	r, found, err := rt.Reports.GetBySequenceNumber(ctx, number)
	if err != nil {
		return report.Report{}, err
	}
	if !found {
		return report.Report{}, fmt.Errorf("report %s: %w", number, report.ErrReportNotFound)
	}
	return r, nil
}

func newShowCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ENV-YYYY-NNN>",
		Short: "Show one report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(rt *bootstrap.Runtime) error {
				r, err := findReport(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(r))
				return nil
			})
		},
	}
}

func newStatusCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status <ENV-YYYY-NNN> <status>",
		Short: "Change the status of a report",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := report.ParseStatus(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return withRuntime(cmd, open, func(rt *bootstrap.Runtime) error {
				r, err := findReport(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				updated, err := rt.Reports.UpdateStatus(cmd.Context(), r.ID, st)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", updated.EnvSequentialNumber, r.Status, updated.Status)
				return nil
			})
		},
	}
}

func newStatsCommand(open Opener) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Dashboard counts for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, open, func(rt *bootstrap.Runtime) error {
				sum, err := rt.Dashboard.Summary(cmd.Context(), year)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSummary(sum))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "incident year for the monthly counts (default current year)")
	return cmd
}

func newExportCommand(open Opener) *cobra.Command {
	var (
		flags  listFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write reports as xlsx or csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := export.ContentType(format); err != nil {
				return err
			}
			filter, opts, err := flags.filter()
			if err != nil {
				return err
			}
			return withRuntime(cmd, open, func(rt *bootstrap.Runtime) error {
				list, err := rt.Dashboard.Search(cmd.Context(), filter, opts)
				if err != nil {
					return err
				}
				now := rt.Reports.Now()

				var w io.Writer = cmd.OutOrStdout()
				if output != "-" {
					if output == "" {
						output = export.Filename(format, now)
					}
					f, err := os.Create(output)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				if err := export.Write(w, format, list, now); err != nil {
					return err
				}
				if output != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d reports written to %s\n", len(list), output)
				}
				return nil
			})
		},
	}
	flags.register(cmd, 0)
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatXLSX, "xlsx or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default generated name)")
	return cmd
}
