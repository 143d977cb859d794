package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/checkit/internal/app"
	"github.com/MrSnakeDoc/checkit/internal/domain"
)

func newSweepCmd(root *rootOptions) *cobra.Command {
	var (
		noReport bool
		admit    []string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep over every active scan, then refresh the reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs := make([]domain.AdmissionRequest, 0, len(admit))
			for _, d := range admit {
				reqs = append(reqs, domain.AdmissionRequest{Domain: d})
			}

			return root.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Sweep(ctx, app.SweepOptions{
					Admissions: reqs,
					NoReport:   noReport,
					Push:       true,
				})
				if err != nil {
					return err
				}
				if res.Skipped {
					pterm.Warning.Println("another sweep holds the lock, nothing done")
					return nil
				}
				if err := renderSweeps([]domain.SweepSummary{res.Summary}); err != nil {
					return err
				}
				if res.Report != nil {
					pterm.Info.Printfln("reports: %d generated, %d archived, %d failed",
						res.Report.Generated, res.Report.Archived, res.Report.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noReport, "no-report", false, "skip the report emitter")
	cmd.Flags().StringSliceVar(&admit, "admit", nil, "admit these domains before sweeping (repeatable)")
	return cmd
}
