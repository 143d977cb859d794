package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/checkit/internal/app"
)

func newReportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write pending artifacts and the summary page without sweeping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Report(ctx)
				if err != nil {
					return err
				}
				pterm.Info.Printfln("%d generated, %d archived, %d failed", res.Generated, res.Archived, res.Failed)
				pterm.Info.Printfln("summary page: %s", res.IndexPath)
				if res.Published {
					pterm.Success.Println("details published")
				}
				return nil
			})
		},
	}
}
